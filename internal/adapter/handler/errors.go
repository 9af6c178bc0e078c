package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/game-stock/internal/core/domain"
)

var errUnauthorized = errors.New("admin token required for a privileged session")

type errorClass struct {
	status int
	code   codes.Code
}

// classify maps an engine error onto the transport status both APIs report.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, errUnauthorized):
		return errorClass{http.StatusUnauthorized, codes.Unauthenticated}
	case errors.Is(err, domain.ErrDuplicateRequest):
		return errorClass{http.StatusConflict, codes.AlreadyExists}
	case errors.Is(err, domain.ErrPermissionDenied):
		return errorClass{http.StatusForbidden, codes.PermissionDenied}
	case errors.Is(err, domain.ErrInsufficientStock):
		return errorClass{http.StatusConflict, codes.FailedPrecondition}
	case errors.Is(err, domain.ErrNotFound):
		return errorClass{http.StatusNotFound, codes.NotFound}
	case domain.IsValidation(err), errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidArgument):
		return errorClass{http.StatusBadRequest, codes.InvalidArgument}
	case errors.Is(err, domain.ErrStoreUnavailable):
		return errorClass{http.StatusServiceUnavailable, codes.Unavailable}
	default:
		return errorClass{http.StatusInternalServerError, codes.Internal}
	}
}

// message hides store internals behind a generic text for unexpected failures.
func (c errorClass) message(err error) string {
	if c.status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func grpcError(err error) error {
	c := classify(err)
	return status.Error(c.code, c.message(err))
}
