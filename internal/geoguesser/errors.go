package geoguesser

import (
	"errors"
	"fmt"
)

var (
	ErrLocationUnavailable = errors.New("no playable location could be found")
	ErrAlreadyGuessed      = errors.New("already guessed this round")
	ErrUnresolvable        = errors.New("guess could not be located")
	ErrFalsePositive       = errors.New("guess only matched the region itself")
	ErrNotAccepting        = errors.New("guesses are not being accepted right now")
	ErrSessionActive       = errors.New("a game is already running in this channel")
	ErrSessionStarting     = errors.New("a game is already starting in this channel")
	ErrNoSession           = errors.New("no game is running in this channel")
	ErrUnauthorized        = errors.New("only the host can do this")
	ErrUnknownMode         = errors.New("unknown game mode")
	ErrSelectionExpired    = errors.New("no mode was selected in time")
	ErrTooManyFailures     = errors.New("too many consecutive failures")
)

// A guess that was not scored. Reason is one of ErrAlreadyGuessed,
// ErrUnresolvable or ErrFalsePositive
type RejectedError struct {
	Reason error
	Guess  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("guess %q rejected: %v", e.Guess, e.Reason)
}

func (e *RejectedError) Unwrap() error {
	return e.Reason
}

func rejected(reason error, guess string) error {
	return &RejectedError{Reason: reason, Guess: guess}
}
