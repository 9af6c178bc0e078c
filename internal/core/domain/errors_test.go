package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitErrorIsPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&CommitError{Stage: StageLineItems, Err: cause})

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "commit purchase line-items", perr.Op)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsPersistence(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "commit purchase: line-items: disk full", err.Error())
}

func TestCommitErrorCarriesStockFailure(t *testing.T) {
	err := error(&CommitError{Stage: StageStockUpdate, Err: ErrInsufficientStock})

	var cerr *CommitError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StageStockUpdate, cerr.Stage)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
}
