package cli

import (
	"context"

	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "aistaff",
		Usage: "AI staff assistant for small business brands",
		Commands: []*cli.Command{
			serveCommand(),
			registerCommand(),
			loginCommand(),
			businessCommand(),
			agentCommand(),
			chatCommand(),
			generateCommand(),
			messagesCommand(),
			contentsCommand(),
			tasksCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.From(ctx).Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
