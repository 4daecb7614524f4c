package contracts

import (
	"errors"
)

var (
	// ErrNilMessage is returned when a nil message is wrapped
	ErrNilMessage = errors.New("contracts: nil message")
	// ErrInvalidEnvelope is returned when an envelope cannot be decoded
	ErrInvalidEnvelope = errors.New("contracts: invalid envelope")
)
