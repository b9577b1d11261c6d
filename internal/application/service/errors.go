package service

import "errors"

// ErrInvalidInput is returned when request fields fail validation
var ErrInvalidInput = errors.New("invalid input")
