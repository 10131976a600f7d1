package model

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

type Tag string

const (
	TagDocumentation Tag = "documentation"
	TagFeature       Tag = "feature"
	TagFix           Tag = "fix"
	TagBug           Tag = "bug"
	TagTodo          Tag = "todo"
)

// Tags lists the closed set of tags in display order.
var Tags = []Tag{TagDocumentation, TagFeature, TagFix, TagBug, TagTodo}

func (t Tag) Valid() bool {
	for _, known := range Tags {
		if t == known {
			return true
		}
	}
	return false
}

type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Tag       Tag       `json:"tag"`
	Completed bool      `json:"completed"`
	Serial    string    `json:"serial"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskData is the document body sent when a task is created.
type TaskData struct {
	UserID    string
	Username  string
	Title     string
	Tag       Tag
	Completed bool
	Serial    string
}

// TaskPatch carries the attributes of a partial document update. Nil fields are left untouched.
type TaskPatch struct {
	Title     *string
	Tag       *Tag
	Completed *bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Tag == nil && p.Completed == nil
}

// Apply returns t with the patched attributes replaced.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Tag != nil {
		t.Tag = *p.Tag
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// SerialMax bounds the number part of a display serial (exclusive).
const SerialMax = 1000

// NewSerial formats a display serial. Serials are labels, collisions are allowed.
func NewSerial(n int) string {
	return fmt.Sprintf("T %d", n)
}

// RandomSerial draws a serial number uniformly from [0, SerialMax).
func RandomSerial() string {
	return NewSerial(rand.IntN(SerialMax))
}

// MatchTitle reports whether the task title contains text, ignoring case.
func (t Task) MatchTitle(text string) bool {
	return strings.Contains(strings.ToLower(t.Title), strings.ToLower(text))
}

// FilterByTitle keeps the tasks whose title contains text, ignoring case.
func FilterByTitle(tasks []Task, text string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.MatchTitle(text) {
			out = append(out, t)
		}
	}
	return out
}
