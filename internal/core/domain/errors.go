package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrNoRowsAffected    = errors.New("unexpected affected row count")
)

// ValidationError is a recoverable rejection of caller input. Shared state is left untouched.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a store failure for the named operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type CommitStage string

const (
	StageHeader      CommitStage = "header"
	StageLineItems   CommitStage = "line-items"
	StageStockUpdate CommitStage = "stock-update"
	StageFinalize    CommitStage = "finalize"
)

// CommitError is a persistence failure during a purchase commit. The transaction has been rolled back.
type CommitError struct {
	Stage CommitStage
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit purchase: %s: %v", e.Stage, e.Err)
}

func (e *CommitError) Unwrap() error {
	return &PersistenceError{Op: "commit purchase " + string(e.Stage), Err: e.Err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
