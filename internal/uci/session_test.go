package uci

import "testing"

func TestBuildPositionCommand(t *testing.T) {
	cases := []struct {
		fen  string
		want string
	}{
		{"", "position startpos\n"},
		{"startpos", "position startpos\n"},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "position fen rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1\n"},
	}
	for _, tc := range cases {
		if got := buildPositionCommand(tc.fen); got != tc.want {
			t.Fatalf("buildPositionCommand(%q) = %q, want %q", tc.fen, got, tc.want)
		}
	}
}

func TestParseBestMove(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"bestmove e2e4", "e2e4"},
		{"bestmove e2e4 ponder e7e5", "e2e4"},
		{"bestmove e7e8q", "e7e8q"},
		{"bestmove (none)", ""},
		{"bestmove 0000", ""},
		{"bestmove", ""},
	}
	for _, tc := range cases {
		if got := parseBestMove(tc.line); got != tc.want {
			t.Fatalf("parseBestMove(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestValidateOptions(t *testing.T) {
	if err := validateOptions(Options{HashMB: 64, MoveTimeMillis: 500}); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	if err := validateOptions(Options{HashMB: 0, MoveTimeMillis: 500}); err == nil {
		t.Fatalf("expected error for zero hash")
	}
	if err := validateOptions(Options{HashMB: 64, MoveTimeMillis: 0}); err == nil {
		t.Fatalf("expected error for zero move time")
	}
}
