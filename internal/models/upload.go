package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the lifecycle state of a client-side upload item.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusCompleted  ItemStatus = "completed"
	StatusFailed     ItemStatus = "failed"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// pending -> processing -> (completed | failed); terminal states have no exits.
var transitions = map[ItemStatus][]ItemStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

func (s ItemStatus) CanTransition(next ItemStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item is a file selected for chat processing.
type Item struct {
	ID     uuid.UUID  `json:"id" yaml:"id"`
	Name   string     `json:"name" yaml:"name"`
	Path   string     `json:"path" yaml:"path"`
	Size   int64      `json:"size" yaml:"size"` // bytes
	Status ItemStatus `json:"status" yaml:"status"`
	Error  string     `json:"error,omitempty" yaml:"error,omitempty"`
}

func NewItem(name, path string, size int64) *Item {
	return &Item{
		ID:     uuid.New(),
		Name:   name,
		Path:   path,
		Size:   size,
		Status: StatusPending,
	}
}

// Transition moves the item to next or reports ErrInvalidTransition.
func (it *Item) Transition(next ItemStatus) error {
	if !it.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, it.Status, next)
	}
	it.Status = next
	return nil
}

// Result is the output of one processed item. Results are never mutated
// after creation.
type Result struct {
	ID        uuid.UUID      `json:"id" yaml:"id"`
	ItemID    uuid.UUID      `json:"item_id" yaml:"item_id"`
	FileName  string         `json:"file_name" yaml:"file_name"`
	Output    string         `json:"output" yaml:"output"`
	Fields    map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
}
