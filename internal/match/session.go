package match

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

type Variant string

const (
	VariantEngine   Variant = "engine"
	VariantScripted Variant = "scripted"
)

// LogEntry is one recorded pair of transcript notes. A pair that ended the
// game after the White half-move carries an empty Black note.
type LogEntry struct {
	White string `json:"white"`
	Black string `json:"black,omitempty"`
}

// Session is the mutable state of one demo game: the live board plus the
// accumulated move and commentary histories. It is not safe for concurrent
// use; the service layer serializes access per session.
type Session struct {
	id        string
	variant   Variant
	character string

	game     *nchess.Game
	movesUCI []string
	movesSAN []string

	commentaries []string
	moveLog      []LogEntry
	logSeen      map[string]struct{}

	cursor    int
	lastError string

	startedAt time.Time
	updatedAt time.Time
}

func NewSession(id string, variant Variant, character string) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        id,
		variant:   variant,
		character: character,
		game:      nchess.NewGame(),
		logSeen:   make(map[string]struct{}),
		startedAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) Variant() Variant  { return s.variant }
func (s *Session) Character() string { return s.character }

func (s *Session) FEN() string {
	return s.game.FEN()
}

func (s *Session) Turn() nchess.Color {
	return s.game.Position().Turn()
}

func (s *Session) GameOver() bool {
	return s.game.Outcome() != nchess.NoOutcome
}

func (s *Session) Outcome() nchess.Outcome {
	return s.game.Outcome()
}

func (s *Session) Method() nchess.Method {
	return s.game.Method()
}

func (s *Session) Board() *nchess.Board {
	return s.game.Position().Board()
}

// PairNumber is the fullmove number of the pair an advance would play next.
func (s *Session) PairNumber() int {
	return len(s.movesUCI)/2 + 1
}

func (s *Session) MovesUCI() []string {
	out := make([]string, len(s.movesUCI))
	copy(out, s.movesUCI)
	return out
}

func (s *Session) MovesSAN() []string {
	out := make([]string, len(s.movesSAN))
	copy(out, s.movesSAN)
	return out
}

func (s *Session) Commentaries() []string {
	out := make([]string, len(s.commentaries))
	copy(out, s.commentaries)
	return out
}

func (s *Session) MoveLog() []LogEntry {
	out := make([]LogEntry, len(s.moveLog))
	copy(out, s.moveLog)
	return out
}

// LastMove returns the squares of the most recently applied half-move, for
// board highlighting. ok is false on the initial position.
func (s *Session) LastMove() (from, to nchess.Square, ok bool) {
	moves := s.game.Moves()
	if len(moves) == 0 {
		return 0, 0, false
	}
	last := moves[len(moves)-1]
	return last.S1(), last.S2(), true
}

func (s *Session) LastError() string    { return s.lastError }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// SetError overwrites the single session error slot. ClearError empties it;
// a successful advance always clears before reporting.
func (s *Session) SetError(msg string) {
	s.lastError = msg
	s.touch()
}

func (s *Session) ClearError() {
	s.lastError = ""
}

func (s *Session) AppendCommentary(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.commentaries = append(s.commentaries, text)
	s.touch()
}

// AppendLog records a pair of transcript notes, deduplicating exact repeats
// so a re-rendered pair is logged once.
func (s *Session) AppendLog(white, black string) bool {
	key := white + "\x00" + black
	if _, seen := s.logSeen[key]; seen {
		return false
	}
	s.logSeen[key] = struct{}{}
	s.moveLog = append(s.moveLog, LogEntry{White: white, Black: black})
	s.touch()
	return true
}

// Reset returns the session to the initial position and wipes every history,
// keeping identity, variant, and character.
func (s *Session) Reset() {
	s.game = nchess.NewGame()
	s.movesUCI = nil
	s.movesSAN = nil
	s.commentaries = nil
	s.moveLog = nil
	s.logSeen = make(map[string]struct{})
	s.cursor = 0
	s.lastError = ""
	s.touch()
}

// applyUCI applies one coordinate-notation half-move and returns its
// algebraic rendering. Histories are only updated when the board accepts.
func (s *Session) applyUCI(move string) (string, error) {
	move = strings.ToLower(strings.TrimSpace(move))
	pos := s.game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, move)
	if err != nil {
		return "", fmt.Errorf("decode move %q: %w", move, err)
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := s.game.Move(mv, nil); err != nil {
		return "", fmt.Errorf("apply move %q: %w", move, err)
	}
	s.movesUCI = append(s.movesUCI, move)
	s.movesSAN = append(s.movesSAN, san)
	s.touch()
	return san, nil
}

// applySAN applies one algebraic half-move and returns its coordinate
// rendering. Used by the scripted variant.
func (s *Session) applySAN(move string) (string, error) {
	move = strings.TrimSpace(move)
	pos := s.game.Position()
	mv, err := nchess.AlgebraicNotation{}.Decode(pos, move)
	if err != nil {
		return "", fmt.Errorf("decode move %q: %w", move, err)
	}
	uci := nchess.UCINotation{}.Encode(pos, mv)
	if err := s.game.Move(mv, nil); err != nil {
		return "", fmt.Errorf("apply move %q: %w", move, err)
	}
	s.movesUCI = append(s.movesUCI, uci)
	s.movesSAN = append(s.movesSAN, move)
	s.touch()
	return uci, nil
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}

// Payload is the serialized form of a session: the coordinate move list is
// the source of truth and the board is rebuilt by replay on load.
type Payload struct {
	SessionID    string     `json:"session_id"`
	Variant      string     `json:"variant"`
	Character    string     `json:"character"`
	MovesUCI     []string   `json:"moves_uci"`
	Commentaries []string   `json:"commentaries,omitempty"`
	MoveLog      []LogEntry `json:"move_log,omitempty"`
	Cursor       int        `json:"cursor"`
	LastError    string     `json:"last_error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (s *Session) Payload() *Payload {
	return &Payload{
		SessionID:    s.id,
		Variant:      string(s.variant),
		Character:    s.character,
		MovesUCI:     s.MovesUCI(),
		Commentaries: s.Commentaries(),
		MoveLog:      s.MoveLog(),
		Cursor:       s.cursor,
		LastError:    s.lastError,
		StartedAt:    s.startedAt,
		UpdatedAt:    s.updatedAt,
	}
}

// FromPayload rebuilds a session by replaying its move list from the
// starting position. A move the board rejects means the payload is corrupt.
func FromPayload(p *Payload) (*Session, error) {
	if p == nil {
		return nil, fmt.Errorf("nil payload")
	}

	game := nchess.NewGame()
	movesSAN := make([]string, 0, len(p.MovesUCI))
	for i, raw := range p.MovesUCI {
		pos := game.Position()
		mv, err := nchess.UCINotation{}.Decode(pos, raw)
		if err != nil {
			return nil, fmt.Errorf("replay move %d (%q): %w", i+1, raw, err)
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("replay move %d (%q): %w", i+1, raw, err)
		}
		movesSAN = append(movesSAN, san)
	}

	logSeen := make(map[string]struct{}, len(p.MoveLog))
	for _, entry := range p.MoveLog {
		logSeen[entry.White+"\x00"+entry.Black] = struct{}{}
	}

	s := &Session{
		id:           p.SessionID,
		variant:      Variant(p.Variant),
		character:    p.Character,
		game:         game,
		movesUCI:     append([]string(nil), p.MovesUCI...),
		movesSAN:     movesSAN,
		commentaries: append([]string(nil), p.Commentaries...),
		moveLog:      append([]LogEntry(nil), p.MoveLog...),
		logSeen:      logSeen,
		cursor:       p.Cursor,
		lastError:    p.LastError,
		startedAt:    p.StartedAt,
		updatedAt:    p.UpdatedAt,
	}
	return s, nil
}
