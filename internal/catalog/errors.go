package catalog

import (
	"errors"
	"fmt"
)

// Kind names the entity an error refers to.
type Kind string

const (
	KindHost      Kind = "host"
	KindTag       Kind = "tag"
	KindAttribute Kind = "attribute"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInUse         = errors.New("in use")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrEmptyName     = errors.New("name must not be empty")
)

type NotFoundError struct {
	Kind Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s (%s) doesn't exist", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type AlreadyExistsError struct {
	Kind Kind
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s (%s) already exists", e.Kind, e.Name)
}

func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// InUseError is returned when removing a tag or attribute that hosts still
// reference without forcing it.
type InUseError struct {
	Kind  Kind
	Name  string
	Count int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s (%s) in use by %d hosts, remove with force", e.Kind, e.Name, e.Count)
}

func (e *InUseError) Is(target error) bool { return target == ErrInUse }

type InvalidQueryError struct {
	Token  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query token %q: %s", e.Token, e.Reason)
}

func (e *InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

func emptyName(kind Kind) error {
	return fmt.Errorf("%s: %w", kind, ErrEmptyName)
}
