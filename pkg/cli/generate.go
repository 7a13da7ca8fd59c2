package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/usecase/content"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func generateCommand() *cli.Command {
	var (
		cfg         config
		token       string
		agentID     string
		contentType string
		prompt      string
	)

	flags := []cli.Flag{
		agentIDFlag(&agentID),
		&cli.StringFlag{
			Name:        "type",
			Usage:       "Content type (post, caption, ad, blog, email); other values send the prompt as is",
			Value:       string(model.ContentTypePost),
			Destination: &contentType,
		},
		&cli.StringFlag{
			Name:        "prompt",
			Usage:       "What to write about",
			Destination: &prompt,
			Required:    true,
		},
	}
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate on-brand content with an agent",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			a, err := cfg.newApp(ctx, needCompleter)
			if err != nil {
				return err
			}
			defer a.close()

			userID, err := a.userID(token)
			if err != nil {
				return err
			}

			result, err := a.content.Generate(ctx, userID, model.AgentID(agentID), model.ContentType(contentType), prompt)
			if err != nil {
				return goerr.Wrap(err, "failed to generate content")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", result.Content.Data.Content)
			if result.Note != "" {
				fmt.Fprintf(c.Root().Writer, "\n(%s)\n", result.Note)
			}
			fmt.Fprintf(c.Root().Writer, "\nContent saved: %s\n", result.Content.ID)
			return nil
		},
	}
}

func messagesCommand() *cli.Command {
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

	return &cli.Command{
		Name:  "messages",
		Usage: "Show the conversation with an agent",
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

			messages, err := a.agentMessages(ctx, userID, model.AgentID(agentID))
			if err != nil {
				return err
			}

			if len(messages) == 0 {
				fmt.Fprintf(c.Root().Writer, "No messages found for agent %s\n", agentID)
				return nil
			}
			for _, m := range messages {
				fmt.Fprintf(c.Root().Writer, "[%s] %s:\n%s\n\n",
					m.CreatedAt.Format("2006-01-02 15:04:05"),
					m.Role,
					m.Text,
				)
			}
			return nil
		},
	}
}

func contentsCommand() *cli.Command {
	var (
		cfg       config
		token     string
		agentID   string
		archived  bool
		contentID string
	)

	flags := []cli.Flag{
		agentIDFlag(&agentID),
		&cli.BoolFlag{
			Name:        "archived",
			Usage:       "Read one content back from the archive bucket",
			Destination: &archived,
		},
		&cli.StringFlag{
			Name:        "content-id",
			Usage:       "Content ID to read with --archived",
			Destination: &contentID,
		},
	}
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "contents",
		Usage: "List content generated by an agent",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if archived && contentID == "" {
				return goerr.New("content-id is required with --archived")
			}

			ctx = cfg.setupLogger(ctx)
			var needs requirement
			if archived {
				needs = needArchive
			}
			a, err := cfg.newApp(ctx, needs)
			if err != nil {
				return err
			}
			defer a.close()

			userID, err := a.userID(token)
			if err != nil {
				return err
			}

			if archived {
				return a.printArchivedContent(ctx, c.Root().Writer, userID, model.AgentID(agentID), model.ContentID(contentID))
			}

			contents, err := a.agentContents(ctx, userID, model.AgentID(agentID))
			if err != nil {
				return err
			}

			if len(contents) == 0 {
				fmt.Fprintf(c.Root().Writer, "No content found for agent %s\n", agentID)
				return nil
			}
			for _, ct := range contents {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\n",
					ct.ID,
					ct.Type,
					ct.CreatedAt.Format("2006-01-02 15:04:05"),
					ct.Data.Prompt,
				)
			}
			return nil
		},
	}
}

// printArchivedContent writes the archived copy of a content
func (a *app) printArchivedContent(ctx context.Context, w io.Writer, userID model.UserID, agentID model.AgentID, contentID model.ContentID) error {
	stored, err := content.LoadArchived(ctx, a.repo, a.archive, userID, agentID, contentID)
	if err != nil {
		return goerr.Wrap(err, "failed to read archived content")
	}

	fmt.Fprintf(w, "%s (%s) generated at %s\n", stored.ID, stored.Type, stored.Data.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Prompt: %s\n\n%s\n", stored.Data.Prompt, stored.Data.Content)
	if stored.Data.Note != "" {
		fmt.Fprintf(w, "\n(%s)\n", stored.Data.Note)
	}
	return nil
}
