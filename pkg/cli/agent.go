package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func agentCommand() *cli.Command {
	return &cli.Command{
		Name:  "agent",
		Usage: "Manage agents",
		Commands: []*cli.Command{
			agentCreateCommand(),
			agentListCommand(),
			agentRefreshCommand(),
		},
	}
}

func agentIDFlag(agentID *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "agent-id",
		Aliases:     []string{"i"},
		Usage:       "Agent ID",
		Sources:     cli.EnvVars("AISTAFF_AGENT_ID"),
		Destination: agentID,
		Required:    true,
	}
}

func businessIDFlag(businessID *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "business-id",
		Aliases:     []string{"b"},
		Usage:       "Business ID",
		Sources:     cli.EnvVars("AISTAFF_BUSINESS_ID"),
		Destination: businessID,
		Required:    true,
	}
}

func agentCreateCommand() *cli.Command {
	var (
		cfg        config
		token      string
		businessID string
		name       string
	)

	flags := []cli.Flag{
		businessIDFlag(&businessID),
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "Agent name",
			Destination: &name,
			Required:    true,
		},
	}
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "create",
		Usage: "Create an agent for a business",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			a, err := cfg.newApp(ctx, needEmbedder)
			if err != nil {
				return err
			}
			defer a.close()

			userID, err := a.userID(token)
			if err != nil {
				return err
			}

			created, err := a.agent.Create(ctx, userID, model.BusinessID(businessID), name)
			if err != nil {
				return goerr.Wrap(err, "failed to create agent")
			}

			fmt.Fprintf(c.Root().Writer, "Agent created: %s\n", created.ID)
			return nil
		},
	}
}

func agentListCommand() *cli.Command {
	var (
		cfg        config
		token      string
		businessID string
	)

	flags := []cli.Flag{
		businessIDFlag(&businessID),
	}
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List agents of a business",
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

			agents, err := a.agent.ListByBusiness(ctx, userID, model.BusinessID(businessID))
			if err != nil {
				return goerr.Wrap(err, "failed to list agents")
			}

			if len(agents) == 0 {
				fmt.Fprintf(c.Root().Writer, "No agents found for business %s\n", businessID)
				return nil
			}
			for _, ag := range agents {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\n",
					ag.ID,
					ag.AgentName,
					ag.UpdatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}

func agentRefreshCommand() *cli.Command {
	var (
		cfg     config
		token   string
		agentID string
	)

	flags := []cli.Flag{
		agentIDFlag(&agentID),
	}
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "refresh",
		Usage: "Regenerate the agent memory from the current business profile",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			a, err := cfg.newApp(ctx, needEmbedder)
			if err != nil {
				return err
			}
			defer a.close()

			userID, err := a.userID(token)
			if err != nil {
				return err
			}

			refreshed, err := a.agent.RefreshMemory(ctx, userID, model.AgentID(agentID))
			if err != nil {
				return goerr.Wrap(err, "failed to refresh agent memory")
			}

			fmt.Fprintf(c.Root().Writer, "Agent memory refreshed: %s\n\n%s\n", refreshed.ID, refreshed.Memory)
			return nil
		},
	}
}
