package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternalError = errors.New("internal error")

	// Revenue ledger errors
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrValidationFailure  = errors.New("invalid invoice event")
	ErrPersistenceFailure = errors.New("revenue persistence failed")
	ErrRevenueNotFound    = errors.New("revenue aggregate not found")
)

// Validation constants
const (
	DefaultPeriodMinYear = 2000
	DefaultPeriodMaxYear = 2100
)
