package model

import (
	"errors"
)

var (
	ErrSubmit          = errors.New("job submission failed")
	ErrJobExists       = errors.New("job already exists")
	ErrInvalidJobID    = errors.New("invalid job id")
	ErrInvalidEnvelope = errors.New("invalid job envelope")
	ErrResultNotFound  = errors.New("result not found")
)
