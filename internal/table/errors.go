package table

import "errors"

// Typed contract-violation errors surfaced at the table boundary without
// mutating state.
var (
	ErrSeatOutOfRange = errors.New("table: seat out of range")
	ErrSeatTaken = errors.New("table: seat taken")
	ErrTableFull = errors.New("table: full")
	ErrPlayerNotFound = errors.New("table: player not found")
	ErrAlreadySeated = errors.New("table: already seated")
	ErrCannotStart = errors.New("table: cannot start hand")
	ErrNotYourTurn = errors.New("table: not your turn")
	ErrIllegalAction = errors.New("table: illegal action")
	ErrInsufficientChips = errors.New("table: insufficient chips for declared action")
)
