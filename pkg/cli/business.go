package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/aistaff/pkg/usecase/business"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func businessCommand() *cli.Command {
	return &cli.Command{
		Name:  "business",
		Usage: "Manage business profiles",
		Commands: []*cli.Command{
			businessCreateCommand(),
			businessListCommand(),
		},
	}
}

// loadBusinessFile reads a business profile from a YAML file
func loadBusinessFile(path string) (*business.CreateInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read business file", goerr.V("path", path))
	}

	var input business.CreateInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to parse business file", goerr.V("path", path))
	}
	return &input, nil
}

func businessCreateCommand() *cli.Command {
	var (
		cfg   config
		token string
		path  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to YAML file containing the business profile",
			Destination: &path,
			Required:    true,
		},
	}
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "create",
		Usage: "Create a business profile from a YAML file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			input, err := loadBusinessFile(path)
			if err != nil {
				return err
			}

			a, err := cfg.newApp(ctx, 0)
			if err != nil {
				return err
			}
			defer a.close()

			userID, err := a.userID(token)
			if err != nil {
				return err
			}

			b, err := a.business.Create(ctx, userID, *input)
			if err != nil {
				return goerr.Wrap(err, "failed to create business")
			}

			fmt.Fprintf(c.Root().Writer, "Business created: %s\n", b.ID)
			return nil
		},
	}
}

func businessListCommand() *cli.Command {
	var (
		cfg   config
		token string
	)

	var flags []cli.Flag
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List business profiles",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			a, err := cfg.newApp(ctx, 0)
			if err != nil {
				return err
			}
			defer a.close()

			userID, err := a.userID(token)
			if err != nil {
				return err
			}

			businesses, err := a.business.List(ctx, userID)
			if err != nil {
				return goerr.Wrap(err, "failed to list businesses")
			}

			if len(businesses) == 0 {
				fmt.Fprintf(c.Root().Writer, "No businesses found\n")
				return nil
			}
			for _, b := range businesses {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\n",
					b.ID,
					b.Name,
					b.BrandTone,
					b.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}
