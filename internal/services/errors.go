package services

import (
	"errors"

	"bucket-list-backend/internal/repository"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = repository.ErrNotFound
	// ErrAlreadyExists is returned when a unique value is already taken
	ErrAlreadyExists = repository.ErrDuplicate
	// ErrInvalidInput is returned when arguments fail validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned when a login does not match
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when a user acts on something they do not belong to
	ErrForbidden = errors.New("forbidden")
)
