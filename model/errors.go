package model

import (
	"errors"
	"fmt"
)

// Closed error taxonomy for caller-visible failures. Every error surfaced by
// the store, pipeline or crawler wraps exactly one of these kinds so callers
// can dispatch with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrFetchFailure  = errors.New("fetch failed")
	ErrParseFailure  = errors.New("parse failed")
)

// Error carries an error kind together with the offending resource
// (index name, document path or URL).
type Error struct {
	Kind     error
	Resource string
	Detail   string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %v (%v)", e.Kind, e.Resource, e.Detail)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Resource)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewNotFound reports a missing index, document or directory.
func NewNotFound(resource string) error {
	return &Error{Kind: ErrNotFound, Resource: resource}
}

// NewAlreadyExists reports an index name collision.
func NewAlreadyExists(resource string) error {
	return &Error{Kind: ErrAlreadyExists, Resource: resource}
}

// NewInvalidInput reports a malformed index name, path or query.
func NewInvalidInput(resource string, detail string) error {
	return &Error{Kind: ErrInvalidInput, Resource: resource, Detail: detail}
}

// NewFetchFailure reports a failed manifest or resource fetch.
func NewFetchFailure(url string, detail string) error {
	return &Error{Kind: ErrFetchFailure, Resource: url, Detail: detail}
}

// NewParseFailure reports a manifest without any usable links.
func NewParseFailure(url string, detail string) error {
	return &Error{Kind: ErrParseFailure, Resource: url, Detail: detail}
}
