package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func registerCommand() *cli.Command {
	var (
		cfg      config
		name     string
		email    string
		password string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "Display name",
			Destination: &name,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "email",
			Aliases:     []string{"e"},
			Usage:       "Email address",
			Destination: &email,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Password (at least 6 characters)",
			Sources:     cli.EnvVars("AISTAFF_PASSWORD"),
			Destination: &password,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "register",
		Usage: "Create a user account and print its bearer token",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			a, err := cfg.newApp(ctx, 0)
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.auth.Register(ctx, name, email, password)
			if err != nil {
				return goerr.Wrap(err, "failed to register")
			}

			fmt.Fprintf(c.Root().Writer, "User created: %s (%s)\n", session.User.ID, session.User.Email)
			fmt.Fprintf(c.Root().Writer, "export AISTAFF_TOKEN=%s\n", session.Token)
			return nil
		},
	}
}

func loginCommand() *cli.Command {
	var (
		cfg      config
		email    string
		password string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "email",
			Aliases:     []string{"e"},
			Usage:       "Email address",
			Destination: &email,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Password",
			Sources:     cli.EnvVars("AISTAFF_PASSWORD"),
			Destination: &password,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and print a bearer token",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			a, err := cfg.newApp(ctx, 0)
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.auth.Login(ctx, email, password)
			if err != nil {
				return goerr.Wrap(err, "failed to login")
			}

			fmt.Fprintf(c.Root().Writer, "export AISTAFF_TOKEN=%s\n", session.Token)
			return nil
		},
	}
}
