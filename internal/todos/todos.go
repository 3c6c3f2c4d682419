// Package todos is a small in-memory resource used to demonstrate guarded routes
// and per-instance list filtering against the policy engine.
package todos

import (
	"slices"
	"sync"
)

// ResourceType is the resource name grants use for todos.
const ResourceType = "todos"

// Actions on todos.
const (
	ActionView   = "view"
	ActionDelete = "delete"
)

// Todo is one task record.
type Todo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	UserID       string   `json:"userId"`
	Completed    bool     `json:"completed"`
	InvitedUsers []string `json:"invitedUsers"`
}

func (t Todo) OwnerID() string           { return t.UserID }
func (t Todo) CollaboratorIDs() []string { return t.InvitedUsers }
func (t Todo) IsCompleted() bool         { return t.Completed }

// Store is a concurrency-safe in-memory todo list.
type Store struct {
	mu    sync.RWMutex
	todos []Todo
}

// NewStore returns a store holding seed.
func NewStore(seed ...Todo) *Store {
	return &Store{todos: slices.Clone(seed)}
}

// SeedData is the demonstration data set.
func SeedData() []Todo {
	return []Todo{
		{ID: "t1", Title: "My Task", UserID: "u1", Completed: true},
		{ID: "t2", Title: "Others Task", UserID: "u2", Completed: false},
		{ID: "t3", Title: "Shared Task", UserID: "u2", Completed: false, InvitedUsers: []string{"u1"}},
	}
}

// List returns a snapshot of all todos.
func (s *Store) List() []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.todos)
}

// Get returns the todo with id.
func (s *Store) Get(id string) (Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.todos {
		if t.ID == id {
			return t, true
		}
	}
	return Todo{}, false
}

// Delete removes the todo with id and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id {
			s.todos = slices.Delete(s.todos, i, i+1)
			return true
		}
	}
	return false
}
