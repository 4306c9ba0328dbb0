package domain

import "errors"

var (
	ErrMissingConfig        = errors.New("no config object was specified")
	ErrMissingSearchOptions = errors.New("no search options were specified")
)

var (
	ErrNoResultTypes          = errors.New("at least one result type is required")
	ErrInvalidResultType      = errors.New("invalid result type")
	ErrInvalidLimit           = errors.New("limit must be between 1 and 10")
	ErrInvalidUnavailableMode = errors.New("unavailable products must be one of show, hide, last")
)

// ArgumentError - ошибка валидации аргумента, отдается подписчикам через "error".
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// Type - дискриминатор для подписчиков, всегда "argument".
func (e *ArgumentError) Type() string { return "argument" }

var (
	ErrQueryMissing   = &ArgumentError{Message: "'query' is missing"}
	ErrQueryNotString = &ArgumentError{Message: "'query' is not a string"}
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyTitle      = errors.New("empty product title")
	ErrDuplicateHandle = errors.New("product handle already exists")
)
