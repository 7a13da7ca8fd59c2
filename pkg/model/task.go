package model

import (
	"time"

	"github.com/google/uuid"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

type TaskID string

// NewTaskID generates a new unique TaskID
func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// Task is a client-side to-do item. It is never persisted by the backend.
type Task struct {
	ID          TaskID       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description,omitempty"`
	Completed   bool         `yaml:"completed"`
	Priority    TaskPriority `yaml:"priority"`
	DueDate     *time.Time   `yaml:"due_date,omitempty"`
	AIGenerated bool         `yaml:"ai_generated"`
	CreatedAt   time.Time    `yaml:"created_at"`
}
