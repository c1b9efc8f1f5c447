package match

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed immortal.yaml
var scriptFS embed.FS

// ScriptPair is one authored move pair: algebraic moves plus the transcript
// notes recorded when the pair is played. The final pair of a decisive
// script may carry only a White half-move.
type ScriptPair struct {
	White     string `yaml:"white"`
	Black     string `yaml:"black,omitempty"`
	WhiteNote string `yaml:"white_note"`
	BlackNote string `yaml:"black_note,omitempty"`
}

type Script struct {
	Name  string       `yaml:"name"`
	Pairs []ScriptPair `yaml:"pairs"`
}

var (
	immortalOnce sync.Once
	immortal     *Script
	immortalErr  error
)

// ImmortalScript returns the embedded Anderssen-Kieseritzky score. Parsed
// once; subsequent calls share the same value.
func ImmortalScript() (*Script, error) {
	immortalOnce.Do(func() {
		raw, err := scriptFS.ReadFile("immortal.yaml")
		if err != nil {
			immortalErr = fmt.Errorf("read script: %w", err)
			return
		}
		var s Script
		if err := yaml.Unmarshal(raw, &s); err != nil {
			immortalErr = fmt.Errorf("parse script: %w", err)
			return
		}
		if len(s.Pairs) == 0 {
			immortalErr = fmt.Errorf("script %q has no pairs", s.Name)
			return
		}
		immortal = &s
	})
	return immortal, immortalErr
}

// ScriptAdvancer replays a fixed score pair by pair, tracking progress in
// the session cursor so a reloaded session resumes where it stopped.
type ScriptAdvancer struct {
	script *Script
	logger *zap.Logger
}

func NewScriptAdvancer(script *Script, logger *zap.Logger) *ScriptAdvancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptAdvancer{script: script, logger: logger}
}

func (a *ScriptAdvancer) AdvancePair(_ context.Context, s *Session, observe Observer) (*Pair, error) {
	if s.GameOver() {
		return nil, ErrGameOver
	}
	if s.cursor >= len(a.script.Pairs) {
		return nil, ErrScriptExhausted
	}

	entry := a.script.Pairs[s.cursor]
	pair := &Pair{Number: s.PairNumber()}

	whiteUCI, err := s.applySAN(entry.White)
	if err != nil {
		return nil, fmt.Errorf("%w: %q at pair %d: %v", ErrIllegalScriptedMove, entry.White, s.cursor+1, err)
	}
	pair.WhiteUCI, pair.WhiteSAN = whiteUCI, entry.White
	if observe != nil {
		observe(PhaseWhite, s, entry.White)
	}

	if entry.Black == "" || s.GameOver() {
		pair.EndedAfterWhite = true
		s.cursor++
		s.AppendLog(entry.WhiteNote, "")
		a.logger.Debug("script pair played",
			zap.String("script", a.script.Name),
			zap.Int("pair", pair.Number),
			zap.String("white", entry.White))
		return pair, nil
	}

	blackUCI, err := s.applySAN(entry.Black)
	if err != nil {
		return nil, fmt.Errorf("%w: %q at pair %d: %v", ErrIllegalScriptedMove, entry.Black, s.cursor+1, err)
	}
	pair.BlackUCI, pair.BlackSAN = blackUCI, entry.Black
	if observe != nil {
		observe(PhaseBlack, s, entry.Black)
	}

	s.cursor++
	s.AppendLog(entry.WhiteNote, entry.BlackNote)
	a.logger.Debug("script pair played",
		zap.String("script", a.script.Name),
		zap.Int("pair", pair.Number),
		zap.String("white", entry.White),
		zap.String("black", entry.Black))
	return pair, nil
}
