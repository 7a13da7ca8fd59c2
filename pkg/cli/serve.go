package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/aistaff/pkg/server"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg            config
		addr           string
		allowedOrigins []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       ":5000",
			Sources:     cli.EnvVars("AISTAFF_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:        "allowed-origins",
			Usage:       "CORS allowed origins (default any)",
			Sources:     cli.EnvVars("AISTAFF_ALLOWED_ORIGINS"),
			Destination: &allowedOrigins,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := cfg.newApp(ctx, needEmbedder|needCompleter)
			if err != nil {
				return err
			}
			defer a.close()

			srv := server.New(&server.UseCases{
				Auth:     a.auth,
				Business: a.business,
				Agent:    a.agent,
				Chat:     a.chat,
				Content:  a.content,
			},
				server.WithMetrics(a.metrics),
				server.WithAllowedOrigins(allowedOrigins),
			)

			return srv.Run(ctx, addr)
		},
	}
}
