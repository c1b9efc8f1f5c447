package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestImmortalScriptLoads(t *testing.T) {
	script, err := ImmortalScript()
	if err != nil {
		t.Fatalf("ImmortalScript: %v", err)
	}
	if got := len(script.Pairs); got != 23 {
		t.Fatalf("pairs = %d, want 23", got)
	}
	last := script.Pairs[len(script.Pairs)-1]
	if last.Black != "" {
		t.Fatalf("final pair has a black half-move: %q", last.Black)
	}
	if !strings.HasSuffix(last.White, "#") {
		t.Fatalf("final move is not a mate: %q", last.White)
	}
	for i, p := range script.Pairs {
		if p.White == "" || p.WhiteNote == "" {
			t.Fatalf("pair %d missing white move or note", i+1)
		}
		if p.Black != "" && p.BlackNote == "" {
			t.Fatalf("pair %d has a black move without a note", i+1)
		}
	}
}

func TestScriptAdvancerReplaysFullGame(t *testing.T) {
	script, err := ImmortalScript()
	if err != nil {
		t.Fatalf("ImmortalScript: %v", err)
	}

	s := NewSession("s1", VariantScripted, "gandalf")
	adv := NewScriptAdvancer(script, nil)

	var pairs []*Pair
	for {
		pair, err := adv.AdvancePair(context.Background(), s, nil)
		if err != nil {
			if !errors.Is(err, ErrGameOver) {
				t.Fatalf("advance %d: %v", len(pairs)+1, err)
			}
			break
		}
		pairs = append(pairs, pair)
	}

	if got := len(pairs); got != 23 {
		t.Fatalf("successful advances = %d, want 23", got)
	}
	final := pairs[len(pairs)-1]
	if !final.EndedAfterWhite || final.WhiteSAN != "Be7#" {
		t.Fatalf("final pair = %+v", final)
	}
	if !s.GameOver() {
		t.Fatalf("game not over after final pair")
	}
	if got := s.Outcome(); got != nchess.WhiteWon {
		t.Fatalf("outcome = %v, want white won", got)
	}
	if got := s.Method().String(); got != "Checkmate" {
		t.Fatalf("method = %q, want Checkmate", got)
	}
	if got := len(s.MoveLog()); got != 23 {
		t.Fatalf("move log = %d entries, want 23", got)
	}
	if lastLog := s.MoveLog()[22]; lastLog.Black != "" {
		t.Fatalf("final log entry has a black note: %q", lastLog.Black)
	}
}

func TestScriptAdvancerExhaustion(t *testing.T) {
	script := &Script{
		Name:  "one pair",
		Pairs: []ScriptPair{{White: "e4", Black: "e5", WhiteNote: "w", BlackNote: "b"}},
	}
	s := NewSession("s1", VariantScripted, "robo")
	adv := NewScriptAdvancer(script, nil)

	if _, err := adv.AdvancePair(context.Background(), s, nil); err != nil {
		t.Fatalf("first advance: %v", err)
	}

	_, err := adv.AdvancePair(context.Background(), s, nil)
	if !errors.Is(err, ErrScriptExhausted) {
		t.Fatalf("err = %v, want ErrScriptExhausted", err)
	}
	if !errors.Is(err, ErrGameOver) {
		t.Fatalf("exhaustion does not wrap ErrGameOver: %v", err)
	}
}

func TestScriptAdvancerIllegalWhiteMove(t *testing.T) {
	script := &Script{
		Name:  "broken",
		Pairs: []ScriptPair{{White: "e5", Black: "e5", WhiteNote: "w", BlackNote: "b"}},
	}
	s := NewSession("s1", VariantScripted, "robo")
	adv := NewScriptAdvancer(script, nil)

	_, err := adv.AdvancePair(context.Background(), s, nil)
	if !errors.Is(err, ErrIllegalScriptedMove) {
		t.Fatalf("err = %v, want ErrIllegalScriptedMove", err)
	}
	if len(s.MovesUCI()) != 0 {
		t.Fatalf("histories changed after rejected scripted move")
	}
	if len(s.MoveLog()) != 0 {
		t.Fatalf("log written for rejected pair")
	}
}

func TestScriptAdvancerIllegalBlackMoveKeepsWhite(t *testing.T) {
	script := &Script{
		Name:  "broken",
		Pairs: []ScriptPair{{White: "e4", Black: "e4", WhiteNote: "w", BlackNote: "b"}},
	}
	s := NewSession("s1", VariantScripted, "robo")
	adv := NewScriptAdvancer(script, nil)

	_, err := adv.AdvancePair(context.Background(), s, nil)
	if !errors.Is(err, ErrIllegalScriptedMove) {
		t.Fatalf("err = %v, want ErrIllegalScriptedMove", err)
	}
	if got := s.MovesSAN(); len(got) != 1 || got[0] != "e4" {
		t.Fatalf("white half-move not retained: %v", got)
	}
}

func TestScriptAdvancerResumesFromCursor(t *testing.T) {
	script, err := ImmortalScript()
	if err != nil {
		t.Fatalf("ImmortalScript: %v", err)
	}

	s := NewSession("s1", VariantScripted, "gandalf")
	adv := NewScriptAdvancer(script, nil)
	for i := 0; i < 5; i++ {
		if _, err := adv.AdvancePair(context.Background(), s, nil); err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
	}

	restored, err := FromPayload(s.Payload())
	if err != nil {
		t.Fatalf("FromPayload: %v", err)
	}
	pair, err := adv.AdvancePair(context.Background(), restored, nil)
	if err != nil {
		t.Fatalf("advance after reload: %v", err)
	}
	if pair.Number != 6 || pair.WhiteSAN != script.Pairs[5].White {
		t.Fatalf("resumed pair = %+v, want pair 6 (%s)", pair, script.Pairs[5].White)
	}
}
