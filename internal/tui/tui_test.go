// internal/tui/tui_test.go
package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/jsonrag/internal/flatten"
	"github.com/mwiater/jsonrag/internal/ragerr"
	"github.com/mwiater/jsonrag/internal/session"
)

type fakeSession struct {
	ingested []string
	asked    []string
	summary  session.Summary
	state    session.State
	answer   string
	err      error
}

func (f *fakeSession) Ingest(_ context.Context, endpoint string) (session.Summary, error) {
	f.ingested = append(f.ingested, endpoint)
	return f.summary, f.err
}

func (f *fakeSession) Ask(_ context.Context, question string) (string, error) {
	f.asked = append(f.asked, question)
	return f.answer, f.err
}

func (f *fakeSession) Snapshot() (session.State, bool) {
	return f.state, f.state.Handle != nil
}

func sized(t *testing.T, s Session) *model {
	t.Helper()
	m := newModel(context.Background(), s)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(*model)
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func TestQuitKeys(t *testing.T) {
	m := sized(t, &fakeSession{})
	for _, msg := range []tea.KeyMsg{key(tea.KeyCtrlC), key(tea.KeyEsc)} {
		if _, cmd := m.Update(msg); cmd == nil {
			t.Errorf("expected a quit command for %q", msg.String())
		}
	}
}

func TestWindowSize(t *testing.T) {
	m := sized(t, &fakeSession{})
	if m.width != 120 || m.height != 40 {
		t.Fatalf("expected 120x40, got %dx%d", m.width, m.height)
	}
	if m.viewport.Width != 120 {
		t.Fatalf("viewport width = %d", m.viewport.Width)
	}
	if got := newModel(context.Background(), &fakeSession{}).View(); got != "Initializing..." {
		t.Fatalf("unexpected view before sizing: %q", got)
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m := sized(t, &fakeSession{})
	want := []focusTarget{focusFetchButton, focusQuestion, focusAskButton, focusEndpoint}
	for _, w := range want {
		m.Update(key(tea.KeyTab))
		if m.focus != w {
			t.Fatalf("expected focus %d, got %d", w, m.focus)
		}
	}
	m.Update(key(tea.KeyShiftTab))
	if m.focus != focusAskButton {
		t.Fatalf("shift+tab should wrap to the ask button, got %d", m.focus)
	}
}

func TestFetchDataFlow(t *testing.T) {
	fake := &fakeSession{
		summary: session.Summary{Endpoint: "http://x/data", Records: 3, Chunks: 1, Characters: 28, BuildID: "0f8fad5b-d9cb"},
		state:   session.State{Data: flatten.MustParse(`{"name":"X","tags":["a","b"]}`)},
	}
	m := sized(t, fake)
	m.endpoint.SetValue("http://x/data")

	_, cmd := m.Update(key(tea.KeyEnter))
	if cmd == nil || !m.busy {
		t.Fatal("enter on the endpoint field should start a fetch")
	}
	if !strings.Contains(m.View(), "Fetching data...") {
		t.Fatalf("busy view missing spinner line:\n%s", m.View())
	}

	msg := ingestCmd(context.Background(), fake, "http://x/data")()
	if len(fake.ingested) != 1 || fake.ingested[0] != "http://x/data" {
		t.Fatalf("unexpected ingest calls: %v", fake.ingested)
	}
	m.Update(msg)

	if m.busy {
		t.Fatal("model should be idle after the fetch completes")
	}
	if m.focus != focusQuestion {
		t.Fatalf("focus should move to the question field, got %d", m.focus)
	}
	view := m.View()
	for _, want := range []string{"Records: 3", "Chunks: 1", "Build: 0f8fad5b", `"name": "X"`} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestKeysIgnoredWhileBusy(t *testing.T) {
	m := sized(t, &fakeSession{})
	m.endpoint.SetValue("http://x")
	m.Update(key(tea.KeyEnter))
	if !m.busy {
		t.Fatal("expected busy state")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")})
	m.Update(key(tea.KeyTab))
	if _, cmd := m.Update(key(tea.KeyEnter)); cmd != nil {
		t.Fatal("enter while busy must not start another action")
	}
	if m.endpoint.Value() != "http://x" || m.focus != focusEndpoint {
		t.Fatalf("input changed while busy: %q focus=%d", m.endpoint.Value(), m.focus)
	}
}

func TestAskShowsAnswer(t *testing.T) {
	fake := &fakeSession{answer: "The name is X."}
	m := sized(t, fake)
	m.setFocus(focusQuestion)
	m.question.SetValue("What is the name?")

	if _, cmd := m.Update(key(tea.KeyEnter)); cmd == nil {
		t.Fatal("expected an ask command")
	}
	m.Update(askCmd(context.Background(), fake, "What is the name?")())

	if len(fake.asked) != 1 {
		t.Fatalf("expected one ask call, got %d", len(fake.asked))
	}
	if !strings.Contains(m.View(), "The name is X.") {
		t.Fatalf("answer missing from view:\n%s", m.View())
	}
}

func TestErrorsShowKindMessage(t *testing.T) {
	m := sized(t, &fakeSession{})
	m.Update(answerMsg{err: ragerr.Newf(ragerr.ErrNoData, "ask", "no data has been fetched yet")})

	view := m.View()
	if !strings.Contains(view, "NoDataError: no data has been fetched yet") {
		t.Fatalf("expected kind message in view:\n%s", view)
	}
	if !strings.Contains(view, "No data fetched") {
		t.Fatalf("status line should report missing data:\n%s", view)
	}
}

func TestEmptyInputsDoNotRun(t *testing.T) {
	fake := &fakeSession{}
	m := sized(t, fake)
	if _, cmd := m.Update(key(tea.KeyEnter)); cmd != nil {
		t.Fatal("empty endpoint should not start a fetch")
	}
	m.setFocus(focusAskButton)
	if _, cmd := m.Update(key(tea.KeyEnter)); cmd != nil {
		t.Fatal("empty question should not start an ask")
	}
	if len(fake.ingested)+len(fake.asked) != 0 {
		t.Fatal("session should not be called")
	}
	if !strings.Contains(m.View(), "Enter a question first.") {
		t.Fatalf("missing notice:\n%s", m.View())
	}
}
