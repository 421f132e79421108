package game

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/joshSzep/charades/internal/observe"
	"github.com/joshSzep/charades/internal/store/memstore"
	"github.com/joshSzep/charades/pkg/provider/llm"
	"github.com/joshSzep/charades/pkg/provider/llm/mock"
)

const testPhone = "+12065550001"

var testLanguages = llm.Languages{
	"EN": "English",
	"KO": "Korean",
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newTestOrchestrator(t *testing.T, p llm.Provider) (*Orchestrator, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	o := New(st, p, testLanguages, WithMetrics(testMetrics(t)))
	return o, st
}

// send is a helper that fails the test on a processing error.
func send(t *testing.T, o *Orchestrator, body string) string {
	t.Helper()
	reply, err := o.HandleMessage(context.Background(), testPhone, body)
	if err != nil {
		t.Fatalf("HandleMessage(%q) error = %v", body, err)
	}
	return reply
}

func TestOptIn(t *testing.T) {
	o, _ := newTestOrchestrator(t, &mock.Provider{})

	if got := send(t, o, "langgang"); got != Message(MsgOptInSuccess) {
		t.Errorf("reply = %q, want opt-in success", got)
	}
}

func TestOptInIsIdempotent(t *testing.T) {
	o, st := newTestOrchestrator(t, &mock.Provider{})

	send(t, o, "langgang")
	p, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	if p.OptedInAt == nil {
		t.Fatal("OptedInAt not stamped by opt-in")
	}
	firstStamp := *p.OptedInAt

	if got := send(t, o, "langgang"); got != Message(MsgAlreadyOptedIn) {
		t.Errorf("second opt-in reply = %q, want already-opted-in", got)
	}

	// The second opt-in mutates nothing: same stamp, still no opt-out.
	p, _, _ = st.GetOrCreatePlayer(context.Background(), testPhone)
	if p.OptedInAt == nil || !p.OptedInAt.Equal(firstStamp) {
		t.Errorf("OptedInAt = %v, want unchanged %v", p.OptedInAt, firstStamp)
	}
	if p.OptedOutAt != nil {
		t.Errorf("OptedOutAt = %v, want nil", p.OptedOutAt)
	}
}

func TestOptInCommandIsCaseInsensitive(t *testing.T) {
	o, _ := newTestOrchestrator(t, &mock.Provider{})

	if got := send(t, o, "  LangGang  "); got != Message(MsgOptInSuccess) {
		t.Errorf("reply = %q, want opt-in success", got)
	}
}

func TestOptOut(t *testing.T) {
	o, st := newTestOrchestrator(t, &mock.Provider{})

	send(t, o, "langgang")
	if got := send(t, o, "optout"); got != Message(MsgOptOutSuccess) {
		t.Errorf("reply = %q, want opt-out success", got)
	}

	p, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	if p.Active {
		t.Error("player still active after opt-out")
	}
}

func TestOptOutIsUnconditional(t *testing.T) {
	o, st := newTestOrchestrator(t, &mock.Provider{})

	// Opt-out without a prior opt-in still succeeds.
	if got := send(t, o, "optout"); got != Message(MsgOptOutSuccess) {
		t.Errorf("reply = %q, want opt-out success", got)
	}

	p, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	if p.Active {
		t.Error("player active after opt-out")
	}
	firstStamp := p.OptedOutAt
	if firstStamp == nil {
		t.Fatal("OptedOutAt not stamped")
	}

	// A repeat opt-out replies the same and re-stamps OptedOutAt.
	if got := send(t, o, "optout"); got != Message(MsgOptOutSuccess) {
		t.Errorf("second reply = %q, want opt-out success", got)
	}
	p, _, _ = st.GetOrCreatePlayer(context.Background(), testPhone)
	if p.OptedOutAt == nil || p.OptedOutAt.Before(*firstStamp) {
		t.Errorf("OptedOutAt = %v, want re-stamped at or after %v", p.OptedOutAt, firstStamp)
	}
}

func TestOptOutEndsActiveSession(t *testing.T) {
	o, st := newTestOrchestrator(t, &mock.Provider{Word: "사과"})

	send(t, o, "langgang")
	send(t, o, "ko")
	send(t, o, "optout")

	p, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	if sess, _ := st.ActiveSession(context.Background(), p.ID); sess != nil {
		t.Errorf("active session survived opt-out: %+v", sess)
	}
}

func TestMessageWhileOptedOut(t *testing.T) {
	o, _ := newTestOrchestrator(t, &mock.Provider{})

	if got := send(t, o, "hello"); got != Message(MsgNotOptedIn) {
		t.Errorf("reply = %q, want not-opted-in", got)
	}
}

func TestLanguageSelectionStartsGame(t *testing.T) {
	p := &mock.Provider{Word: "사과"}
	o, st := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	got := send(t, o, "KO")

	if !strings.Contains(got, "Korean") || !strings.Contains(got, "사과") {
		t.Errorf("reply = %q, want language name and word", got)
	}
	if len(p.GenerateWordCalls) != 1 || p.GenerateWordCalls[0].LanguageCode != "ko" {
		t.Errorf("GenerateWordCalls = %+v, want one call with ko", p.GenerateWordCalls)
	}

	player, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	sess, _ := st.ActiveSession(context.Background(), player.ID)
	if sess == nil {
		t.Fatal("no active session after language selection")
	}
	if sess.Word != "사과" || sess.Language != "ko" {
		t.Errorf("session = %+v, want word 사과 in ko", sess)
	}
}

func TestUnsupportedLanguageCode(t *testing.T) {
	p := &mock.Provider{}
	o, _ := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	// A two-letter string that is not a supported code is treated like any
	// other text: guidance, no game.
	if got := send(t, o, "xx"); got != Message(MsgHowToPlay) {
		t.Errorf("reply = %q, want how-to-play", got)
	}
	if len(p.GenerateWordCalls) != 0 {
		t.Errorf("GenerateWordCalls = %+v, want none", p.GenerateWordCalls)
	}
}

func TestNonLanguageTextWhileIdle(t *testing.T) {
	o, _ := newTestOrchestrator(t, &mock.Provider{})

	send(t, o, "langgang")
	if got := send(t, o, "what do I do"); got != Message(MsgHowToPlay) {
		t.Errorf("reply = %q, want how-to-play", got)
	}
}

func TestDescriptionCompletesGame(t *testing.T) {
	p := &mock.Provider{
		Word:             "사과",
		EvaluationResult: llm.Evaluation{Score: 85, Feedback: "Great description!"},
	}
	o, st := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	send(t, o, "ko")
	got := send(t, o, "a red fruit that grows on trees")

	if !strings.Contains(got, "Score: 85/100") {
		t.Errorf("reply = %q, want score line", got)
	}
	if !strings.Contains(got, "Great description!") {
		t.Errorf("reply = %q, want feedback", got)
	}

	if len(p.EvaluateCalls) != 1 {
		t.Fatalf("EvaluateCalls = %d, want 1", len(p.EvaluateCalls))
	}
	call := p.EvaluateCalls[0]
	if call.Word != "사과" || call.Description != "a red fruit that grows on trees" || call.LanguageCode != "ko" {
		t.Errorf("EvaluateCall = %+v", call)
	}

	player, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	if sess, _ := st.ActiveSession(context.Background(), player.ID); sess != nil {
		t.Errorf("session still active after completion: %+v", sess)
	}
}

func TestCommandPrecedenceOverDescription(t *testing.T) {
	p := &mock.Provider{Word: "apple"}
	o, _ := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	send(t, o, "en")

	// Mid-game commands must never be scored as descriptions.
	if got := send(t, o, "langgang"); got != Message(MsgAlreadyOptedIn) {
		t.Errorf("reply = %q, want already-opted-in", got)
	}
	if got := send(t, o, "optout"); got != Message(MsgOptOutSuccess) {
		t.Errorf("reply = %q, want opt-out success", got)
	}
	if len(p.EvaluateCalls) != 0 {
		t.Errorf("EvaluateCalls = %d, want 0", len(p.EvaluateCalls))
	}
}

func TestNewLanguageSelectionReplacesActiveGame(t *testing.T) {
	p := &mock.Provider{Word: "apple"}
	o, st := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	send(t, o, "en")

	// While playing, a two-letter message is a description, not a new game.
	got := send(t, o, "ko")
	if !strings.Contains(got, "Score:") {
		t.Errorf("reply = %q, want an evaluation", got)
	}

	player, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	if sess, _ := st.ActiveSession(context.Background(), player.ID); sess != nil {
		t.Errorf("session still active: %+v", sess)
	}
}

func TestWordGenerationFailureRollsBack(t *testing.T) {
	p := &mock.Provider{GenerateWordErr: errors.New("provider down")}
	o, st := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	if _, err := o.HandleMessage(context.Background(), testPhone, "ko"); err == nil {
		t.Fatal("HandleMessage() error = nil, want provider failure")
	}

	player, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	if sess, _ := st.ActiveSession(context.Background(), player.ID); sess != nil {
		t.Errorf("session created despite provider failure: %+v", sess)
	}
}

func TestEvaluationFailureKeepsSessionActive(t *testing.T) {
	p := &mock.Provider{Word: "apple", EvaluateErr: errors.New("provider down")}
	o, st := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	send(t, o, "en")
	if _, err := o.HandleMessage(context.Background(), testPhone, "a fruit"); err == nil {
		t.Fatal("HandleMessage() error = nil, want provider failure")
	}

	// The game survives so the player can retry the description.
	player, _, _ := st.GetOrCreatePlayer(context.Background(), testPhone)
	sess, _ := st.ActiveSession(context.Background(), player.ID)
	if sess == nil {
		t.Error("active session lost after evaluation failure")
	}
}

func TestStoreFailureSurfacesError(t *testing.T) {
	inner := memstore.New()
	failing := &memstore.FailNext{
		GameStore: inner,
		Method:    "CreateSession",
		Err:       memstore.ErrInjected,
	}
	o := New(failing, &mock.Provider{Word: "apple"}, testLanguages, WithMetrics(testMetrics(t)))

	if _, err := o.HandleMessage(context.Background(), testPhone, "langgang"); err != nil {
		t.Fatalf("opt-in error = %v", err)
	}
	if _, err := o.HandleMessage(context.Background(), testPhone, "en"); !errors.Is(err, memstore.ErrInjected) {
		t.Errorf("HandleMessage() error = %v, want injected store failure", err)
	}
}

func TestHandleSpeechStartsGameFromLanguageName(t *testing.T) {
	p := &mock.Provider{Word: "사과"}
	o, _ := newTestOrchestrator(t, p)

	send(t, o, "langgang")

	reply, err := o.HandleSpeech(context.Background(), testPhone, "Korean.")
	if err != nil {
		t.Fatalf("HandleSpeech() error = %v", err)
	}
	if !strings.Contains(reply, "사과") {
		t.Errorf("reply = %q, want the word", reply)
	}
	if len(p.GenerateWordCalls) != 1 || p.GenerateWordCalls[0].LanguageCode != "ko" {
		t.Errorf("GenerateWordCalls = %+v, want one call with ko", p.GenerateWordCalls)
	}
}

func TestHandleSpeechScoresDescription(t *testing.T) {
	p := &mock.Provider{
		Word:             "apple",
		EvaluationResult: llm.Evaluation{Score: 90, Feedback: "Spot on."},
	}
	o, _ := newTestOrchestrator(t, p)

	send(t, o, "langgang")
	send(t, o, "en")

	reply, err := o.HandleSpeech(context.Background(), testPhone, "A fruit that keeps doctors away.")
	if err != nil {
		t.Fatalf("HandleSpeech() error = %v", err)
	}
	if !strings.Contains(reply, "90 out of 100") {
		t.Errorf("reply = %q, want spoken score", reply)
	}
	if strings.Contains(reply, "\n") {
		t.Errorf("reply = %q, want no line breaks for speech", reply)
	}
}
