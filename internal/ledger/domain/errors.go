package domain

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
)

var (
	ErrNotConnected = ledgerstore.ErrNotConnected
	ErrWriteFailure = ledgerstore.ErrWriteFailure
	ErrNotFound     = errors.New("not_found")
	ErrValidation   = errors.New("validation_error")
)

// NotFoundError names the entity that did not resolve.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
