package match

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

var (
	// ErrGameOver is returned when an advance is requested on a terminal
	// position. ErrScriptExhausted wraps it: an exhausted script is the same
	// condition class from the caller's point of view.
	ErrGameOver        = errors.New("game is already over")
	ErrScriptExhausted = fmt.Errorf("script exhausted: %w", ErrGameOver)

	// ErrIllegalScriptedMove is returned when a scripted algebraic move is
	// rejected by the board. The half-move is not applied.
	ErrIllegalScriptedMove = errors.New("scripted move rejected by the board")
)

// NoMoveError reports that the search engine returned no move for a side.
// When Side is Black the White half-move of the pair has already been
// applied and is not rolled back.
type NoMoveError struct {
	Side nchess.Color
}

func (e *NoMoveError) Error() string {
	return fmt.Sprintf("engine returned no move for %s", e.Side.Name())
}
