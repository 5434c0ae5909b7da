package graph

import (
	"errors"

	"bucket-list-backend/internal/services"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/rs/zerolog/log"
)

// Error codes carried in extensions.code
const (
	CodeNotFound        = "NOT_FOUND"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeConflict        = "CONFLICT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error is a resolver error with an extension code
type Error struct {
	Message string
	Code    string
}

func (e *Error) Error() string {
	return e.Message
}

// Extensions is picked up by the executor and copied into the response
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

func badInput(msg string) error {
	return &Error{Message: msg, Code: CodeBadUserInput}
}

// toError maps service errors onto coded resolver errors. Unknown errors are logged
// and their message hidden.
func toError(err error) error {
	if err == nil {
		return nil
	}
	var gqlErr *Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return &Error{Message: err.Error(), Code: CodeNotFound}
	case errors.Is(err, services.ErrInvalidInput):
		return &Error{Message: err.Error(), Code: CodeBadUserInput}
	case errors.Is(err, services.ErrAlreadyExists):
		return &Error{Message: err.Error(), Code: CodeConflict}
	case errors.Is(err, services.ErrInvalidCredentials):
		return &Error{Message: err.Error(), Code: CodeUnauthenticated}
	case errors.Is(err, services.ErrForbidden):
		return &Error{Message: err.Error(), Code: CodeForbidden}
	}

	log.Error().Err(err).Msg("Resolver failed")
	return &Error{Message: "internal server error", Code: CodeInternal}
}

// toQueryError maps err like toError but returns it as a QueryError.
// Subscription resolvers must return this type or the executor drops the extensions.
func toQueryError(err error) error {
	if err == nil {
		return nil
	}
	var gqlErr *Error
	if !errors.As(toError(err), &gqlErr) {
		return err
	}
	return &gqlerrors.QueryError{
		Message:       gqlErr.Message,
		Extensions:    gqlErr.Extensions(),
		ResolverError: gqlErr,
	}
}
