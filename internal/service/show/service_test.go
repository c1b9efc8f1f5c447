package show

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"showmatch/internal/match"
	"showmatch/internal/render"
	"showmatch/internal/store"
	"showmatch/pkg/showdto"
)

type fakeSearcher struct {
	moves []string
	next  int
}

func (f *fakeSearcher) SetPosition(context.Context, string) error { return nil }

func (f *fakeSearcher) BestMove(context.Context) (string, error) {
	if f.next >= len(f.moves) {
		return "", nil
	}
	mv := f.moves[f.next]
	f.next++
	return mv, nil
}

type fakeEngineSource struct {
	searcher   match.Searcher
	acquireErr error
	releases   int
	lastErr    error
}

func (f *fakeEngineSource) Acquire(context.Context) (match.Searcher, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.searcher, nil
}

func (f *fakeEngineSource) Release(_ match.Searcher, err error) {
	f.releases++
	f.lastErr = err
}

type fakeCommentator struct {
	remark string
	err    error
	calls  int
}

func (f *fakeCommentator) Generate(context.Context, string, string) (string, error) {
	f.calls++
	return f.remark, f.err
}

func newScriptedService(t *testing.T, commentator CommentaryGenerator) *Service {
	t.Helper()
	script, err := match.ImmortalScript()
	if err != nil {
		t.Fatalf("ImmortalScript: %v", err)
	}
	return NewService(nil, store.NewMemoryStore(), render.NewPNGBoardRenderer(), nil, script, commentator, Config{Character: "gandalf"})
}

func newEngineService(t *testing.T, engines EngineSource, commentator CommentaryGenerator) *Service {
	t.Helper()
	return NewService(nil, store.NewMemoryStore(), render.NewPNGBoardRenderer(), engines, nil, commentator, Config{Character: "robo"})
}

func TestCreateScriptedSession(t *testing.T) {
	svc := newScriptedService(t, nil)

	state, err := svc.Create(context.Background(), match.VariantScripted, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if state.SessionID == "" || state.Variant != "scripted" || state.Character != "gandalf" {
		t.Fatalf("state = %+v", state)
	}
	if state.MoveCount != 0 || state.GameOver {
		t.Fatalf("fresh session not at start: %+v", state)
	}
	if state.Turn != "White" {
		t.Fatalf("turn = %q, want White", state.Turn)
	}
}

func TestCreateRejectsUnconfiguredVariant(t *testing.T) {
	svc := newScriptedService(t, nil)
	if _, err := svc.Create(context.Background(), match.VariantEngine, ""); err == nil {
		t.Fatalf("expected error creating engine session without an engine")
	}

	var domainErr *showdto.DomainError
	_, err := svc.Create(context.Background(), match.Variant("bogus"), "")
	if !errors.As(err, &domainErr) {
		t.Fatalf("err = %v, want DomainError", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc := newScriptedService(t, nil)
	_, err := svc.Get(context.Background(), "missing")
	var domainErr *showdto.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != showdto.CodeSessionNotFound {
		t.Fatalf("err = %v, want session not found", err)
	}
}

func TestAdvanceScriptedPair(t *testing.T) {
	svc := newScriptedService(t, nil)
	created, err := svc.Create(context.Background(), match.VariantScripted, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	state, err := svc.Advance(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if state.LastPair == nil || state.LastPair.Number != 1 {
		t.Fatalf("last pair = %+v", state.LastPair)
	}
	if state.LastPair.WhiteSAN != "e4" || state.LastPair.BlackSAN != "e5" {
		t.Fatalf("last pair = %+v", state.LastPair)
	}
	if state.MoveCount != 2 || state.LastError != "" {
		t.Fatalf("state = %+v", state)
	}
	if len(state.MoveLog) != 1 || state.MoveLog[0].White == "" {
		t.Fatalf("move log = %+v", state.MoveLog)
	}
}

func TestAdvanceScriptedToCompletion(t *testing.T) {
	svc := newScriptedService(t, nil)
	created, err := svc.Create(context.Background(), match.VariantScripted, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var state *showdto.SessionState
	advances := 0
	for {
		state, err = svc.Advance(context.Background(), created.SessionID)
		if err != nil {
			t.Fatalf("advance %d: %v", advances+1, err)
		}
		if state.LastError != "" {
			break
		}
		advances++
		if advances > 30 {
			t.Fatalf("game did not finish")
		}
	}

	if advances != 23 {
		t.Fatalf("successful advances = %d, want 23", advances)
	}
	if !state.GameOver {
		t.Fatalf("game not over: %+v", state)
	}
	if state.Outcome != "1-0" || state.Method != "Checkmate" {
		t.Fatalf("outcome = %q method = %q", state.Outcome, state.Method)
	}
	if state.LastError != "The game is already over." {
		t.Fatalf("last error = %q", state.LastError)
	}
	if state.LastPair == nil || !state.LastPair.EndedAfterWhite || state.LastPair.WhiteSAN != "Be7#" {
		t.Fatalf("last pair = %+v", state.LastPair)
	}
}

func TestAdvanceEngineWithCommentary(t *testing.T) {
	engines := &fakeEngineSource{searcher: &fakeSearcher{moves: []string{"e2e4", "e7e5"}}}
	commentator := &fakeCommentator{remark: "A calm classical start."}
	svc := newEngineService(t, engines, commentator)

	created, err := svc.Create(context.Background(), match.VariantEngine, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	state, err := svc.Advance(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if len(state.Commentaries) != 1 || state.Commentaries[0] != "A calm classical start." {
		t.Fatalf("commentaries = %v", state.Commentaries)
	}
	if len(state.MoveLog) != 1 || state.MoveLog[0].White != "e4" || state.MoveLog[0].Black != "e5" {
		t.Fatalf("move log = %+v", state.MoveLog)
	}
	if engines.releases != 1 || engines.lastErr != nil {
		t.Fatalf("engine release = %d calls, err %v", engines.releases, engines.lastErr)
	}
}

func TestAdvanceCommentaryFailureKeepsMoves(t *testing.T) {
	engines := &fakeEngineSource{searcher: &fakeSearcher{moves: []string{"e2e4", "e7e5"}}}
	commentator := &fakeCommentator{err: errors.New("upstream down")}
	svc := newEngineService(t, engines, commentator)

	created, err := svc.Create(context.Background(), match.VariantEngine, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	state, err := svc.Advance(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if state.MoveCount != 2 {
		t.Fatalf("moves rolled back on commentary failure: %+v", state)
	}
	if state.LastError != "Commentary unavailable for this pair." {
		t.Fatalf("last error = %q", state.LastError)
	}
	if len(state.Commentaries) != 0 {
		t.Fatalf("commentaries = %v", state.Commentaries)
	}
}

func TestAdvanceErrorThenSuccessClearsError(t *testing.T) {
	searcher := &fakeSearcher{}
	engines := &fakeEngineSource{searcher: searcher}
	svc := newEngineService(t, engines, nil)

	created, err := svc.Create(context.Background(), match.VariantEngine, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	state, err := svc.Advance(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if state.LastError != "White has no move to play." {
		t.Fatalf("last error = %q", state.LastError)
	}

	searcher.moves = []string{"e2e4", "e7e5"}
	searcher.next = 0
	state, err = svc.Advance(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("second Advance: %v", err)
	}
	if state.LastError != "" {
		t.Fatalf("error not cleared on success: %q", state.LastError)
	}
	if state.MoveCount != 2 {
		t.Fatalf("state = %+v", state)
	}
}

func TestAdvancePublishesEvents(t *testing.T) {
	svc := newScriptedService(t, nil)
	created, err := svc.Create(context.Background(), match.VariantScripted, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	events, cancel := svc.Hub().Subscribe(created.SessionID)
	defer cancel()

	if _, err := svc.Advance(context.Background(), created.SessionID); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	var types []string
	for len(events) > 0 {
		ev := <-events
		types = append(types, ev.Type)
	}
	if len(types) != 2 || types[0] != showdto.EventWhite || types[1] != showdto.EventBlack {
		t.Fatalf("event types = %v", types)
	}
}

func TestResetSession(t *testing.T) {
	svc := newScriptedService(t, nil)
	created, err := svc.Create(context.Background(), match.VariantScripted, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Advance(context.Background(), created.SessionID); err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
	}

	state, err := svc.Reset(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if state.MoveCount != 0 || len(state.MoveLog) != 0 || state.GameOver {
		t.Fatalf("state after reset = %+v", state)
	}

	// the script replays from the top after a reset
	next, err := svc.Advance(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("advance after reset: %v", err)
	}
	if next.LastPair == nil || next.LastPair.WhiteSAN != "e4" {
		t.Fatalf("pair after reset = %+v", next.LastPair)
	}
}

func TestBoardPNG(t *testing.T) {
	svc := newScriptedService(t, nil)
	created, err := svc.Create(context.Background(), match.VariantScripted, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Advance(context.Background(), created.SessionID); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	data, err := svc.BoardPNG(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("not a png: % x", data[:8])
	}
}
