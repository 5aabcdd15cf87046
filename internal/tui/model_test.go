package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toaster/internal/config"
	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/store"
	"github.com/jmylchreest/toaster/internal/toast"
)

// recordingSender stands in for the running program.
type recordingSender struct {
	msgs chan tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.msgs <- msg
}

func (s *recordingSender) next(t *testing.T) tea.Msg {
	t.Helper()
	select {
	case msg := <-s.msgs:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for widget message")
		return nil
	}
}

type fixture struct {
	model   Model
	manager *toast.Manager
	queue   *store.Queue
	doc     *dom.Document
	sender  *recordingSender
	hidden  chan string
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	q := store.NewQueue()
	t.Cleanup(func() { _ = q.Close() })

	doc := dom.NewDocument()
	widgets := NewWidgetFactory()
	sender := &recordingSender{msgs: make(chan tea.Msg, 16)}
	widgets.Bind(sender)

	hidden := make(chan string, 16)
	mgr := toast.NewManager(q, doc, widgets, toast.WithHiddenHook(func(_ *model.Toast, reason string) {
		hidden <- reason
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return &fixture{
		model: New(RunOptions{
			Context:  ctx,
			Config:   cfg,
			Manager:  mgr,
			Document: doc,
			Widgets:  widgets,
		}),
		manager: mgr,
		queue:   q,
		doc:     doc,
		sender:  sender,
		hidden:  hidden,
	}
}

func (f *fixture) update(msg tea.Msg) tea.Cmd {
	next, cmd := f.model.Update(msg)
	f.model = next.(Model)
	return cmd
}

// submit runs fn in the background and drives the model through the render pass and
// show request that the submission waits on.
func (f *fixture) submit(t *testing.T, fn func() error) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()

	f.update(f.model.waitForChange())

	msg := f.sender.next(t)
	_, ok := msg.(showMsg)
	require.True(t, ok, "expected showMsg, got %T", msg)
	f.update(msg)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not complete")
	}
}

func TestModel_RenderPassMountsAndAcknowledges(t *testing.T) {
	f := newFixture(t, nil)

	toastA := model.NewToast("first", model.ClassSuccess)
	version := f.queue.Append(toastA)

	f.update(renderMsg{})

	assert.True(t, f.doc.Has(toastA.ElementID()))
	assert.Equal(t, version, f.queue.RenderedVersion())
	require.Len(t, f.model.rows, 1)
	assert.False(t, f.model.rows[0].visible)
	assert.Contains(t, f.model.View(), "No toasts")

	f.queue.Remove(toastA)
	f.update(renderMsg{})

	assert.False(t, f.doc.Has(toastA.ElementID()))
	assert.Empty(t, f.model.rows)
}

func TestModel_SubmitShowsAndAutohides(t *testing.T) {
	f := newFixture(t, nil)

	f.submit(t, func() error {
		return f.manager.SubmitMessage(context.Background(), "Saved successfully", model.ClassSuccess, false, "")
	})

	require.Len(t, f.model.rows, 1)
	row := f.model.rows[0]
	assert.True(t, row.visible)
	assert.Equal(t, model.IconCheck, row.toast.Icon)

	view := f.model.View()
	assert.Contains(t, view, "Saved successfully")
	assert.Contains(t, view, "✓")
	assert.Contains(t, view, "1 active")

	f.update(autohideMsg{elementID: row.element.ID()})

	assert.Equal(t, 0, f.queue.Len())
	assert.Equal(t, dom.ReasonExpired, <-f.hidden)
}

func TestModel_ShowArmsAutohideOnlyWhenEnabled(t *testing.T) {
	f := newFixture(t, nil)

	plain := model.NewToast("plain", "")
	pinned := model.NewToast("pinned", "")
	f.queue.Append(plain)
	f.queue.Append(pinned)
	f.update(renderMsg{})

	el, err := f.doc.GetElementByID(pinned.ElementID())
	require.NoError(t, err)
	el.SetAttribute(dom.AttrAutohide, "false")

	assert.NotNil(t, f.update(showMsg{elementID: plain.ElementID()}))
	assert.Nil(t, f.update(showMsg{elementID: pinned.ElementID()}))
	assert.Contains(t, f.model.View(), "(pinned)")
}

func TestModel_PersistentToastIgnoresStaleAutohide(t *testing.T) {
	f := newFixture(t, nil)

	f.submit(t, func() error {
		return f.manager.SubmitMessage(context.Background(), "stay", model.ClassWarning, true, "")
	})

	f.update(autohideMsg{elementID: f.model.rows[0].element.ID()})
	assert.Equal(t, 1, f.queue.Len())
}

func TestModel_HideMessageRemovesToast(t *testing.T) {
	f := newFixture(t, nil)

	f.submit(t, func() error {
		return f.manager.SubmitMessage(context.Background(), "bye", "", true, "")
	})
	id := f.model.rows[0].element.ID()

	f.update(hideMsg{elementID: id, reason: dom.ReasonClosed})

	assert.Equal(t, 0, f.queue.Len())
	assert.Equal(t, dom.ReasonClosed, <-f.hidden)

	// The next render pass drops the element.
	f.update(f.model.waitForChange())
	assert.False(t, f.doc.Has(id))
}

func TestModel_DismissNewestKey(t *testing.T) {
	f := newFixture(t, nil)

	for _, text := range []string{"older", "newer"} {
		f.submit(t, func() error {
			return f.manager.SubmitMessage(context.Background(), text, "", true, "")
		})
	}
	newer := f.model.rows[1].toast

	cmd := f.update(tea.KeyMsg{Type: tea.KeyCtrlD})
	require.NotNil(t, cmd)
	result := cmd()
	assert.Equal(t, dismissResultMsg{}, result)

	f.update(f.sender.next(t))

	items := f.queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "older", items[0].Message)
	assert.False(t, f.queue.Contains(newer))
}

func TestModel_ComposerKeys(t *testing.T) {
	f := newFixture(t, nil)

	assert.Nil(t, f.update(tea.KeyMsg{Type: tea.KeyEnter}), "empty input submits nothing")

	f.update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.ClassSuccess, styles[f.model.styleIdx])
	assert.Contains(t, f.model.View(), "[success]")

	f.update(tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.True(t, f.model.persistent)

	f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello")})
	assert.Equal(t, "hello", f.model.input.Value())

	cmd := f.update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, f.model.input.Value())

	for range len(styles) - 1 {
		f.update(tea.KeyMsg{Type: tea.KeyTab})
	}
	assert.Equal(t, 0, f.model.styleIdx)
}

func TestModel_QuitKey(t *testing.T) {
	f := newFixture(t, nil)

	cmd := f.update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_SubmitResultShowsErrors(t *testing.T) {
	f := newFixture(t, nil)

	f.update(submitResultMsg{err: assert.AnError})
	assert.Contains(t, f.model.View(), "Toast failed")

	f.update(submitResultMsg{})
	assert.NotContains(t, f.model.View(), "Toast failed")
}

func TestModel_Poll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Build finished","toast_class":"danger-subtle"}`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.TUI.PollURL = srv.URL
	f := newFixture(t, cfg)

	poll := f.update(pollMsg{})
	require.NotNil(t, poll)

	f.submit(t, func() error {
		result := poll().(pollResultMsg)
		return result.err
	})

	require.Len(t, f.model.rows, 1)
	assert.Equal(t, "Build finished", f.model.rows[0].toast.Message)
	assert.Contains(t, f.model.View(), "✗")

	assert.NotNil(t, f.update(pollResultMsg{}), "next poll is scheduled")
}

func TestModel_PollNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.TUI.PollURL = srv.URL
	f := newFixture(t, cfg)

	result := f.update(pollMsg{})()
	assert.Equal(t, pollResultMsg{}, result)
	assert.Equal(t, 0, f.queue.Len())
}

func TestIconGlyph(t *testing.T) {
	assert.Equal(t, "✓", iconGlyph(model.IconCheck))
	assert.Equal(t, "⚠", iconGlyph(model.IconWarning))
	assert.Equal(t, "✗", iconGlyph(model.IconXMark))
	assert.Equal(t, "•", iconGlyph("custom"))
	assert.Empty(t, iconGlyph(""))
}
