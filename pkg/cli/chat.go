package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/usecase/chat"
	"github.com/m-mizutani/aistaff/pkg/usecase/task"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/aistaff/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const defaultTaskFile = "aistaff-tasks.yaml"

// chatSession runs conversation turns and merges extracted tasks into the
// local task list file
type chatSession struct {
	chat     *chat.UseCase
	metrics  *metrics.Metrics
	userID   model.UserID
	agentID  model.AgentID
	tasks    *task.List
	taskFile string
	w        io.Writer
	now      func() time.Time
}

// turn sends one message and prints the reply with any new tasks
func (s *chatSession) turn(ctx context.Context, text string) error {
	reply, err := s.chat.Chat(ctx, s.userID, s.agentID, text)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.w, "\n%s\n", reply.Text())
	if reply.Note != "" {
		fmt.Fprintf(s.w, "(%s)\n", reply.Note)
	}

	created := s.tasks.MergeReply(string(reply.Message.ID), reply.Text(), s.now())
	if created == 0 {
		fmt.Fprintln(s.w)
		return nil
	}
	s.metrics.AddExtractedTasks(created)

	fmt.Fprintf(s.w, "\nAdded %d task(s) to %s:\n", created, s.taskFile)
	for _, t := range s.tasks.Tasks()[:created] {
		fmt.Fprintf(s.w, "  - [ ] %s\n", t.Title)
	}
	fmt.Fprintln(s.w)

	if err := s.tasks.Save(s.taskFile); err != nil {
		return goerr.Wrap(err, "failed to save task list", goerr.V("path", s.taskFile))
	}
	return nil
}

func chatCommand() *cli.Command {
	var (
		cfg      config
		token    string
		agentID  string
		taskFile string
	)

	flags := []cli.Flag{
		agentIDFlag(&agentID),
		taskFileFlag(&taskFile),
	}
	flags = append(flags, sessionFlags(&token)...)
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation with an agent",
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

			// fail early on a missing or foreign agent
			ag, err := a.agent.Get(ctx, userID, model.AgentID(agentID))
			if err != nil {
				return goerr.Wrap(err, "failed to get agent")
			}

			tasks, err := task.Load(taskFile)
			if err != nil {
				return goerr.Wrap(err, "failed to load task list")
			}

			session := &chatSession{
				chat:     a.chat,
				metrics:  a.metrics,
				userID:   userID,
				agentID:  ag.ID,
				tasks:    tasks,
				taskFile: taskFile,
				w:        c.Root().Writer,
				now:      time.Now,
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          c.Root().Writer,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat with %s started. Type 'exit' to quit.\n", ag.AgentName)

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" {
					break
				}
				if message == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
				sp.Suffix = " thinking..."
				sp.Start()
				err = session.turn(ctx, message)
				sp.Stop()

				if err != nil {
					logging.From(ctx).Error("chat turn failed", "error", err)
					fmt.Fprintf(c.Root().Writer, "Failed to get a reply: %v\n", err)
				}
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
