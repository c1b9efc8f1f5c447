package match

import (
	"context"
	"fmt"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"
)

// Searcher is the engine surface an advance needs: position sync plus a
// single best-move query. Satisfied by uci.Session.
type Searcher interface {
	SetPosition(ctx context.Context, fen string) error
	BestMove(ctx context.Context) (string, error)
}

type Phase string

const (
	PhaseWhite Phase = "white"
	PhaseBlack Phase = "black"
)

// Observer is called after each applied half-move, before the advance
// continues, so callers can stream intermediate board states.
type Observer func(phase Phase, s *Session, san string)

// Pair is the result of one successful advance. A pair where the game ended
// on the White half-move carries no Black fields.
type Pair struct {
	Number          int
	WhiteSAN        string
	WhiteUCI        string
	BlackSAN        string
	BlackUCI        string
	EndedAfterWhite bool
}

// PairAdvancer plays the next move pair of a session.
type PairAdvancer interface {
	AdvancePair(ctx context.Context, s *Session, observe Observer) (*Pair, error)
}

// Advancer plays move pairs by asking an engine for both sides. The engine is
// re-synchronized before every query and after every applied half-move so its
// internal position never drifts from the board.
type Advancer struct {
	search Searcher
	logger *zap.Logger
}

func NewAdvancer(search Searcher, logger *zap.Logger) *Advancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advancer{search: search, logger: logger}
}

func (a *Advancer) AdvancePair(ctx context.Context, s *Session, observe Observer) (*Pair, error) {
	if s.GameOver() {
		return nil, ErrGameOver
	}

	pair := &Pair{Number: s.PairNumber()}

	if err := a.search.SetPosition(ctx, s.FEN()); err != nil {
		return nil, fmt.Errorf("sync engine: %w", err)
	}
	whiteUCI, err := a.search.BestMove(ctx)
	if err != nil {
		return nil, fmt.Errorf("query white move: %w", err)
	}
	if whiteUCI == "" {
		return nil, &NoMoveError{Side: nchess.White}
	}
	whiteSAN, err := s.applyUCI(whiteUCI)
	if err != nil {
		return nil, err
	}
	pair.WhiteUCI, pair.WhiteSAN = whiteUCI, whiteSAN
	a.logger.Debug("half-move applied",
		zap.String("side", "white"),
		zap.Int("pair", pair.Number),
		zap.String("san", whiteSAN))
	if observe != nil {
		observe(PhaseWhite, s, whiteSAN)
	}

	if s.GameOver() {
		pair.EndedAfterWhite = true
		a.syncAfterMove(ctx, s)
		return pair, nil
	}

	if err := a.search.SetPosition(ctx, s.FEN()); err != nil {
		// The White half-move stays applied; the caller reports the
		// failure against the current board.
		return nil, fmt.Errorf("sync engine: %w", err)
	}
	blackUCI, err := a.search.BestMove(ctx)
	if err != nil {
		return nil, fmt.Errorf("query black move: %w", err)
	}
	if blackUCI == "" {
		return nil, &NoMoveError{Side: nchess.Black}
	}
	blackSAN, err := s.applyUCI(blackUCI)
	if err != nil {
		return nil, err
	}
	pair.BlackUCI, pair.BlackSAN = blackUCI, blackSAN
	a.logger.Debug("half-move applied",
		zap.String("side", "black"),
		zap.Int("pair", pair.Number),
		zap.String("san", blackSAN))
	if observe != nil {
		observe(PhaseBlack, s, blackSAN)
	}

	a.syncAfterMove(ctx, s)
	return pair, nil
}

// syncAfterMove pushes the post-move position to the engine. A failure here
// does not undo the move; the next advance re-syncs before querying anyway.
func (a *Advancer) syncAfterMove(ctx context.Context, s *Session) {
	if err := a.search.SetPosition(ctx, s.FEN()); err != nil {
		a.logger.Warn("engine position sync failed", zap.Error(err), zap.String("fen", s.FEN()))
	}
}
