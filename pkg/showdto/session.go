package showdto

import "time"

// LogEntry is one line of the chronological transcript: a White description
// and an optional Black description for the same move pair.
type LogEntry struct {
	White string `json:"white"`
	Black string `json:"black,omitempty"`
}

// MovePair is one displayed advance: a White half-move and, unless the game
// ended on White's move, a Black half-move.
type MovePair struct {
	Number          int    `json:"number"`
	WhiteSAN        string `json:"white_san"`
	WhiteUCI        string `json:"white_uci"`
	BlackSAN        string `json:"black_san,omitempty"`
	BlackUCI        string `json:"black_uci,omitempty"`
	EndedAfterWhite bool   `json:"ended_after_white,omitempty"`
}

type SessionState struct {
	SessionID    string     `json:"session_id"`
	Variant      string     `json:"variant"`
	Character    string     `json:"character,omitempty"`
	FEN          string     `json:"fen"`
	Turn         string     `json:"turn"`
	MoveCount    int        `json:"move_count"`
	GameOver     bool       `json:"game_over"`
	Outcome      string     `json:"outcome,omitempty"`
	Method       string     `json:"method,omitempty"`
	MovesSAN     []string   `json:"moves_san,omitempty"`
	MoveLog      []LogEntry `json:"move_log,omitempty"`
	Commentaries []string   `json:"commentaries,omitempty"`
	LastPair     *MovePair  `json:"last_pair,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const (
	EventWhite      = "white"
	EventBlack      = "black"
	EventCommentary = "commentary"
	EventError      = "error"
	EventReset      = "reset"
)

// Event is one websocket snapshot emitted while an advance is in flight, so
// the page can pace its own redraws instead of the server sleeping.
type Event struct {
	Type       string `json:"type"`
	SAN        string `json:"san,omitempty"`
	FEN        string `json:"fen,omitempty"`
	Commentary string `json:"commentary,omitempty"`
	Message    string `json:"message,omitempty"`
	GameOver   bool   `json:"game_over,omitempty"`
}
