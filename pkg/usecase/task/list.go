package task

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// DueAfter is how far in the future extracted tasks are due
const DueAfter = 7 * 24 * time.Hour

// List is the client side task list. It is an explicit state container: the
// caller owns it and decides when it is loaded and saved.
type List struct {
	mu      sync.Mutex
	tasks   []*model.Task
	replies map[string]struct{}
}

// NewList creates an empty task list
func NewList() *List {
	return &List{replies: make(map[string]struct{})}
}

// AddInput is a task created by explicit user action
type AddInput struct {
	Title       string
	Description string
	Priority    model.TaskPriority
	DueDate     *time.Time
}

// Add prepends a user created task
func (l *List) Add(input AddInput, now time.Time) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "task title is required")
	}

	priority := input.Priority
	switch priority {
	case model.TaskPriorityLow, model.TaskPriorityMedium, model.TaskPriorityHigh:
	case "":
		priority = model.TaskPriorityMedium
	default:
		return nil, goerr.Wrap(model.ErrInvalidInput, "invalid task priority", goerr.V("priority", input.Priority))
	}

	task := &model.Task{
		ID:          model.NewTaskID(),
		Title:       title,
		Description: input.Description,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = append([]*model.Task{task}, l.tasks...)

	c := *task
	return &c, nil
}

// Toggle flips the completion flag of a task
func (l *List) Toggle(id model.TaskID) (*model.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.tasks {
		if t.ID == id {
			t.Completed = !t.Completed
			c := *t
			return &c, nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "task not found", goerr.V("task_id", id))
}

// Delete removes a task
func (l *List) Delete(id model.TaskID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, t := range l.tasks {
		if t.ID == id {
			l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
			return nil
		}
	}
	return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V("task_id", id))
}

// Tasks returns a copy of the tasks, newest first
func (l *List) Tasks() []*model.Task {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]*model.Task, 0, len(l.tasks))
	for _, t := range l.tasks {
		c := *t
		result = append(result, &c)
	}
	return result
}

// MergeReply extracts tasks from a completed assistant reply and prepends them,
// keeping their order in the reply. A reply is merged at most once; merging the
// same replyID again creates nothing. It returns the number of tasks created.
func (l *List) MergeReply(replyID string, reply string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, done := l.replies[replyID]; done {
		return 0
	}
	l.replies[replyID] = struct{}{}

	titles := Extract(reply)
	if len(titles) == 0 {
		return 0
	}

	due := now.Add(DueAfter)
	created := make([]*model.Task, 0, len(titles))
	for _, title := range titles {
		d := due
		created = append(created, &model.Task{
			ID:          model.NewTaskID(),
			Title:       title,
			Priority:    model.TaskPriorityMedium,
			DueDate:     &d,
			AIGenerated: true,
			CreatedAt:   now,
		})
	}
	l.tasks = append(created, l.tasks...)

	return len(created)
}

type listFile struct {
	Tasks         []*model.Task `yaml:"tasks"`
	MergedReplies []string      `yaml:"merged_replies,omitempty"`
}

// Load reads a task list saved by Save. A missing file is an empty list.
func Load(path string) (*List, error) {
	l := NewList()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, goerr.Wrap(err, "failed to read task file", goerr.V("path", path))
	}

	var file listFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse task file", goerr.V("path", path))
	}

	l.tasks = file.Tasks
	for _, id := range file.MergedReplies {
		l.replies[id] = struct{}{}
	}
	return l, nil
}

// Save writes the task list to path
func (l *List) Save(path string) error {
	l.mu.Lock()
	file := listFile{Tasks: l.tasks}
	for id := range l.replies {
		file.MergedReplies = append(file.MergedReplies, id)
	}
	sort.Strings(file.MergedReplies)
	raw, err := yaml.Marshal(&file)
	l.mu.Unlock()

	if err != nil {
		return goerr.Wrap(err, "failed to encode task list")
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return goerr.Wrap(err, "failed to write task file", goerr.V("path", path))
	}
	return nil
}
