package show

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"showmatch/internal/match"
	"showmatch/internal/render"
	"showmatch/internal/store"
	"showmatch/pkg/showdto"
)

// EngineSource hands out engine searchers for the duration of one advance.
// Satisfied by an adapter over the uci pool.
type EngineSource interface {
	Acquire(ctx context.Context) (match.Searcher, error)
	Release(s match.Searcher, err error)
}

// CommentaryGenerator produces one in-character remark for a full move pair.
type CommentaryGenerator interface {
	Generate(ctx context.Context, whiteSAN, blackSAN string) (string, error)
}

var ErrSessionNotFound = &showdto.DomainError{
	Code:    showdto.CodeSessionNotFound,
	Message: "session not found",
}

type Config struct {
	Character string
}

// Service orchestrates demo sessions: creation, pair advancement, commentary,
// rendering, and persistence. Access to each session is serialized by a
// per-session lock so concurrent advances cannot interleave half-moves.
type Service struct {
	logger      *zap.Logger
	store       store.Store
	renderer    render.BoardRenderer
	engines     EngineSource
	script      *match.Script
	commentator CommentaryGenerator
	character   string

	hub *Hub

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewService(
	logger *zap.Logger,
	st store.Store,
	renderer render.BoardRenderer,
	engines EngineSource,
	script *match.Script,
	commentator CommentaryGenerator,
	cfg Config,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	character := cfg.Character
	if character == "" {
		character = "robo"
	}
	return &Service{
		logger:      logger,
		store:       st,
		renderer:    renderer,
		engines:     engines,
		script:      script,
		commentator: commentator,
		character:   character,
		hub:         NewHub(),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *Service) Hub() *Hub { return s.hub }

// Create starts a fresh session for the requested variant. The engine
// variant requires a configured engine; the scripted variant a loaded script.
// An empty character falls back to the configured default.
func (s *Service) Create(ctx context.Context, variant match.Variant, character string) (*showdto.SessionState, error) {
	switch variant {
	case match.VariantEngine:
		if s.engines == nil {
			return nil, &showdto.DomainError{
				Code:    showdto.CodeInternal,
				Message: "no engine configured",
			}
		}
	case match.VariantScripted:
		if s.script == nil {
			return nil, &showdto.DomainError{
				Code:    showdto.CodeInternal,
				Message: "no script configured",
			}
		}
	default:
		return nil, &showdto.DomainError{
			Code:    showdto.CodeInternal,
			Message: fmt.Sprintf("unknown variant %q", variant),
		}
	}

	if character == "" {
		character = s.character
	}
	sess := match.NewSession(uuid.NewString(), variant, character)
	if err := s.store.Save(ctx, sess.Payload()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("session created",
		zap.String("session_id", sess.ID()),
		zap.String("variant", string(variant)))
	return buildState(sess), nil
}

func (s *Service) Get(ctx context.Context, id string) (*showdto.SessionState, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildState(sess), nil
}

// Advance plays the next move pair. Failures that belong to the game itself
// (finished game, no move, bad script, engine trouble) are recorded as the
// session's error message and returned as ordinary state; only infrastructure
// failures surface as errors.
func (s *Service) Advance(ctx context.Context, id string) (*showdto.SessionState, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	pair, advErr := s.advancePair(ctx, sess)
	if advErr != nil {
		msg := advanceErrorMessage(advErr)
		sess.SetError(msg)
		s.hub.Publish(id, showdto.Event{Type: showdto.EventError, Message: msg, FEN: sess.FEN(), GameOver: sess.GameOver()})
		s.logger.Warn("advance failed",
			zap.String("session_id", id),
			zap.Error(advErr))
		if err := s.store.Save(ctx, sess.Payload()); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return buildState(sess), nil
	}

	sess.ClearError()
	if sess.Variant() == match.VariantEngine {
		sess.AppendLog(pair.WhiteSAN, pair.BlackSAN)
	}

	// scripted pairs carry their own pre-authored notes; generated
	// commentary narrates engine pairs only, and only full ones.
	if s.commentator != nil && sess.Variant() == match.VariantEngine && !pair.EndedAfterWhite {
		remark, cErr := s.commentator.Generate(ctx, pair.WhiteSAN, pair.BlackSAN)
		if cErr != nil {
			msg := "Commentary unavailable for this pair."
			sess.SetError(msg)
			s.hub.Publish(id, showdto.Event{Type: showdto.EventError, Message: msg, FEN: sess.FEN()})
			s.logger.Warn("commentary failed",
				zap.String("session_id", id),
				zap.Error(cErr))
		} else {
			sess.AppendCommentary(remark)
			s.hub.Publish(id, showdto.Event{Type: showdto.EventCommentary, Commentary: remark, FEN: sess.FEN()})
		}
	}

	if err := s.store.Save(ctx, sess.Payload()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return buildState(sess), nil
}

func (s *Service) advancePair(ctx context.Context, sess *match.Session) (*match.Pair, error) {
	observe := func(phase match.Phase, ms *match.Session, san string) {
		s.hub.Publish(ms.ID(), showdto.Event{
			Type:     string(phase),
			SAN:      san,
			FEN:      ms.FEN(),
			GameOver: ms.GameOver(),
		})
	}

	switch sess.Variant() {
	case match.VariantScripted:
		return match.NewScriptAdvancer(s.script, s.logger).AdvancePair(ctx, sess, observe)
	case match.VariantEngine:
		searcher, err := s.engines.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire engine: %w", err)
		}
		pair, advErr := match.NewAdvancer(searcher, s.logger).AdvancePair(ctx, sess, observe)
		s.engines.Release(searcher, advErr)
		return pair, advErr
	default:
		return nil, fmt.Errorf("unknown variant %q", sess.Variant())
	}
}

// Reset returns the session to the starting position and wipes histories.
func (s *Service) Reset(ctx context.Context, id string) (*showdto.SessionState, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Reset()
	if err := s.store.Save(ctx, sess.Payload()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.hub.Publish(id, showdto.Event{Type: showdto.EventReset, FEN: sess.FEN()})
	s.logger.Info("session reset", zap.String("session_id", id))
	return buildState(sess), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

// BoardPNG renders the session's current board with the last half-move
// highlighted.
func (s *Service) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := render.RenderOptions{}
	if from, to, ok := sess.LastMove(); ok {
		opts.Highlight = &render.MoveHighlight{From: from, To: to}
	}
	return s.renderer.RenderPNG(ctx, sess.Board(), opts)
}

func (s *Service) load(ctx context.Context, id string) (*match.Session, error) {
	payload, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if payload == nil {
		return nil, ErrSessionNotFound
	}
	sess, err := match.FromPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return sess, nil
}

func (s *Service) lock(id string) func() {
	s.lockMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.lockMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func advanceErrorMessage(err error) string {
	var noMove *match.NoMoveError
	switch {
	case errors.Is(err, match.ErrScriptExhausted):
		return "The scripted game has reached its end."
	case errors.Is(err, match.ErrGameOver):
		return "The game is already over."
	case errors.Is(err, match.ErrIllegalScriptedMove):
		return "The script contains a move the board refuses."
	case errors.As(err, &noMove):
		return fmt.Sprintf("%s has no move to play.", noMove.Side.Name())
	default:
		return "The engine could not produce a move. Try again."
	}
}

func buildState(sess *match.Session) *showdto.SessionState {
	movesSAN := sess.MovesSAN()
	movesUCI := sess.MovesUCI()

	state := &showdto.SessionState{
		SessionID:    sess.ID(),
		Variant:      string(sess.Variant()),
		Character:    sess.Character(),
		FEN:          sess.FEN(),
		Turn:         sess.Turn().Name(),
		MoveCount:    len(movesSAN),
		GameOver:     sess.GameOver(),
		MovesSAN:     movesSAN,
		Commentaries: sess.Commentaries(),
		LastError:    sess.LastError(),
		StartedAt:    sess.StartedAt(),
		UpdatedAt:    sess.UpdatedAt(),
	}

	for _, entry := range sess.MoveLog() {
		state.MoveLog = append(state.MoveLog, showdto.LogEntry{White: entry.White, Black: entry.Black})
	}

	if sess.GameOver() {
		state.Outcome = sess.Outcome().String()
		state.Method = sess.Method().String()
	}

	if n := len(movesSAN); n > 0 {
		pair := &showdto.MovePair{Number: (n + 1) / 2}
		if n%2 == 0 {
			pair.WhiteSAN, pair.WhiteUCI = movesSAN[n-2], movesUCI[n-2]
			pair.BlackSAN, pair.BlackUCI = movesSAN[n-1], movesUCI[n-1]
		} else {
			pair.WhiteSAN, pair.WhiteUCI = movesSAN[n-1], movesUCI[n-1]
			pair.EndedAfterWhite = sess.GameOver()
		}
		state.LastPair = pair
	}

	return state
}
