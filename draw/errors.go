/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package draw

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPool        = errors.New("selection pool is empty")
	ErrInvalidCount     = errors.New("invalid winner count")
	ErrNonNumericCount  = fmt.Errorf("%w: not a whole number", ErrInvalidCount)
	ErrCountTooLow      = fmt.Errorf("%w: must be at least 1", ErrInvalidCount)
	ErrInsufficientPool = errors.New("insufficient pool")
	ErrPoolExhausted    = errors.New("no names left in the pool")
	ErrInvalidSlot      = errors.New("no winner in that slot")
	ErrBusy             = errors.New("a draw is already in progress")
)

// InsufficientError is returned when more winners are requested than the
// pool holds.
type InsufficientError struct {
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient pool: %d requested, only %d available", e.Requested, e.Available)
}

func (e *InsufficientError) Unwrap() error {
	return ErrInsufficientPool
}

// TransitionError reports an event fired from a state that has no
// transition for it.
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition from state %q for event %q", e.From, e.Event)
}
