package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("storage conflict, retry the request")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrQuantityOverflow  = fmt.Errorf("quantity cannot exceed %d", MaxQuantity)
)

// ValidationError collects field-level messages for malformed input.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns nil when nothing was collected so callers can `return verr.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InsufficientStockError is returned when a decrease would drive quantity below zero.
type InsufficientStockError struct {
	VariantID uuid.UUID
	SKU       string
	Name      string
	Have      int
	Need      int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.SKU
	}
	if name == "" {
		name = e.VariantID.String()
	}
	return fmt.Sprintf("Not enough stock for %s. Have %d, need %d", name, e.Have, e.Need)
}

// Shortfall is how many units are missing to satisfy the request.
func (e *InsufficientStockError) Shortfall() int {
	return e.Need - e.Have
}

// NotFoundError names the missing resource. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Resource string
	ID       string
	// Field is the request path of the reference, when the lookup came from input.
	Field string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError wraps a storage-level lock timeout, deadlock, serialization failure
// or uniqueness violation. The whole request may be retried.
type ConflictError struct {
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return "conflict: " + e.Err.Error()
	}
	return ErrConflict.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
