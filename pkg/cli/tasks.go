package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/usecase/task"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const dueDateLayout = "2006-01-02"

func taskFileFlag(taskFile *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "task-file",
		Usage:       "YAML file collecting tasks extracted from replies",
		Value:       defaultTaskFile,
		Sources:     cli.EnvVars("AISTAFF_TASK_FILE"),
		Destination: taskFile,
	}
}

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage the local task list",
		Commands: []*cli.Command{
			tasksListCommand(),
			tasksAddCommand(),
			tasksDoneCommand(),
			tasksRemoveCommand(),
		},
	}
}

// updateTaskFile loads the task list, applies fn and saves the result
func updateTaskFile(path string, fn func(*task.List) error) error {
	tasks, err := task.Load(path)
	if err != nil {
		return goerr.Wrap(err, "failed to load task list")
	}
	if err := fn(tasks); err != nil {
		return err
	}
	if err := tasks.Save(path); err != nil {
		return goerr.Wrap(err, "failed to save task list", goerr.V("path", path))
	}
	return nil
}

func printTask(w io.Writer, t *model.Task) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "[%s] %s  %s (%s", mark, t.ID, t.Title, t.Priority)
	if t.DueDate != nil {
		fmt.Fprintf(w, ", due %s", t.DueDate.Format(dueDateLayout))
	}
	if t.AIGenerated {
		fmt.Fprint(w, ", from chat")
	}
	fmt.Fprintln(w, ")")
}

func listTasks(w io.Writer, path string, all bool) error {
	tasks, err := task.Load(path)
	if err != nil {
		return goerr.Wrap(err, "failed to load task list")
	}

	shown := 0
	for _, t := range tasks.Tasks() {
		if t.Completed && !all {
			continue
		}
		printTask(w, t)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "No tasks found")
	}
	return nil
}

func addTask(w io.Writer, path string, input task.AddInput, now time.Time) error {
	return updateTaskFile(path, func(tasks *task.List) error {
		t, err := tasks.Add(input, now)
		if err != nil {
			return goerr.Wrap(err, "failed to add task")
		}
		fmt.Fprintf(w, "Task added: %s\n", t.ID)
		return nil
	})
}

func toggleTask(w io.Writer, path string, id model.TaskID) error {
	return updateTaskFile(path, func(tasks *task.List) error {
		t, err := tasks.Toggle(id)
		if err != nil {
			return goerr.Wrap(err, "failed to update task")
		}
		if t.Completed {
			fmt.Fprintf(w, "Task completed: %s\n", t.Title)
		} else {
			fmt.Fprintf(w, "Task reopened: %s\n", t.Title)
		}
		return nil
	})
}

func removeTask(w io.Writer, path string, id model.TaskID) error {
	return updateTaskFile(path, func(tasks *task.List) error {
		if err := tasks.Delete(id); err != nil {
			return goerr.Wrap(err, "failed to delete task")
		}
		fmt.Fprintf(w, "Task deleted: %s\n", id)
		return nil
	})
}

func taskIDArg(c *cli.Command) (model.TaskID, error) {
	if c.Args().Len() == 0 {
		return "", goerr.New("task-id is required")
	}
	return model.TaskID(c.Args().Get(0)), nil
}

func tasksListCommand() *cli.Command {
	var (
		taskFile string
		all      bool
	)

	return &cli.Command{
		Name:  "list",
		Usage: "List open tasks",
		Flags: []cli.Flag{
			taskFileFlag(&taskFile),
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "Include completed tasks",
				Destination: &all,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return listTasks(c.Root().Writer, taskFile, all)
		},
	}
}

func tasksAddCommand() *cli.Command {
	var (
		taskFile    string
		title       string
		description string
		priority    string
		due         string
	)

	return &cli.Command{
		Name:  "add",
		Usage: "Add a task",
		Flags: []cli.Flag{
			taskFileFlag(&taskFile),
			&cli.StringFlag{
				Name:        "title",
				Usage:       "Task title",
				Destination: &title,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "description",
				Usage:       "Task description",
				Destination: &description,
			},
			&cli.StringFlag{
				Name:        "priority",
				Usage:       "Priority (low, medium, high)",
				Value:       string(model.TaskPriorityMedium),
				Destination: &priority,
			},
			&cli.StringFlag{
				Name:        "due",
				Usage:       "Due date (YYYY-MM-DD)",
				Destination: &due,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			input := task.AddInput{
				Title:       title,
				Description: description,
				Priority:    model.TaskPriority(priority),
			}
			if due != "" {
				d, err := time.ParseInLocation(dueDateLayout, due, time.Local)
				if err != nil {
					return goerr.Wrap(err, "invalid due date", goerr.V("due", due))
				}
				input.DueDate = &d
			}
			return addTask(c.Root().Writer, taskFile, input, time.Now())
		},
	}
}

func tasksDoneCommand() *cli.Command {
	var taskFile string

	return &cli.Command{
		Name:      "done",
		Aliases:   []string{"toggle"},
		Usage:     "Toggle the completion of a task",
		ArgsUsage: "<task-id>",
		Flags:     []cli.Flag{taskFileFlag(&taskFile)},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := taskIDArg(c)
			if err != nil {
				return err
			}
			return toggleTask(c.Root().Writer, taskFile, id)
		},
	}
}

func tasksRemoveCommand() *cli.Command {
	var taskFile string

	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a task",
		ArgsUsage: "<task-id>",
		Flags:     []cli.Flag{taskFileFlag(&taskFile)},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := taskIDArg(c)
			if err != nil {
				return err
			}
			return removeTask(c.Root().Writer, taskFile, id)
		},
	}
}
