package engine

import "errors"

var (
	// ErrInvalidPhase is returned when an operation is attempted outside
	// its legal state.
	ErrInvalidPhase = errors.New("invalid phase")

	// ErrDuplicateSubmission is returned when a player already has a
	// decision recorded for the current round.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrUnknownPlayer is returned when the player id is not in the active
	// roster.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrNoBet is returned when a player without a live crash bet tries to
	// cash out.
	ErrNoBet = errors.New("no bet placed")
)
