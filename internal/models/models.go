package models

import (
	"time"
)

// Model is a row stored in the local SQLite database.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Criteria filters [Repository.List]. Each repository documents the keys it understands.
type Criteria map[string]any

// String returns the non-empty string stored under key.
func (c Criteria) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok && s != ""
}

// Bool returns the bool stored under key, false when absent.
func (c Criteria) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

// Repository is CRUD access to one local table.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria Criteria) ([]T, error)
}
