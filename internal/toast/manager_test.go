package toast

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer mounts an element for every queued toast and acknowledges each pass.
type fakeRenderer struct {
	queue *store.Queue
	doc   *dom.Document
	done  chan struct{}
}

func startFakeRenderer(q *store.Queue, doc *dom.Document) *fakeRenderer {
	r := &fakeRenderer{queue: q, doc: doc, done: make(chan struct{})}
	ch := q.Subscribe()
	go func() {
		defer close(r.done)
		for range ch {
			r.sync()
		}
	}()
	return r
}

func (r *fakeRenderer) sync() {
	items, version := r.queue.Snapshot()
	live := make(map[string]bool, len(items))
	for _, t := range items {
		id := t.ElementID()
		live[id] = true
		if !r.doc.Has(id) {
			r.doc.Mount(dom.NewElement(id))
		}
	}
	for _, id := range r.doc.IDs() {
		if !live[id] {
			r.doc.Unmount(id)
		}
	}
	r.queue.MarkRendered(version)
}

// fakeWidget records show calls and hides synchronously.
type fakeWidget struct {
	el    *dom.Element
	mu    sync.Mutex
	shown int
}

func (w *fakeWidget) Show() {
	w.mu.Lock()
	w.shown++
	w.mu.Unlock()
}

func (w *fakeWidget) Hide(reason string) {
	w.el.SetAttribute(dom.AttrHideReason, reason)
	w.el.Dispatch(dom.EventHidden)
}

func (w *fakeWidget) Shown() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shown
}

type fakeWidgets struct {
	mu      sync.Mutex
	widgets map[string]*fakeWidget
	err     error
	panics  bool
}

func newFakeWidgets() *fakeWidgets {
	return &fakeWidgets{widgets: make(map[string]*fakeWidget)}
}

func (f *fakeWidgets) GetOrCreateInstance(el *dom.Element) (Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("widget library exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	w, ok := f.widgets[el.ID()]
	if !ok {
		w = &fakeWidget{el: el}
		f.widgets[el.ID()] = w
	}
	return w, nil
}

func (f *fakeWidgets) get(t *testing.T, toast *model.Toast) *fakeWidget {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.widgets[toast.ElementID()]
	require.True(t, ok, "no widget for %s", toast.ElementID())
	return w
}

type harness struct {
	queue   *store.Queue
	doc     *dom.Document
	widgets *fakeWidgets
	manager *Manager
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	q := store.NewQueue()
	doc := dom.NewDocument()
	widgets := newFakeWidgets()
	r := startFakeRenderer(q, doc)
	t.Cleanup(func() {
		_ = q.Close()
		<-r.done
	})
	return &harness{
		queue:   q,
		doc:     doc,
		widgets: widgets,
		manager: NewManager(q, doc, widgets, opts...),
	}
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestManager_SubmitMessage_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	require.NoError(t, h.manager.SubmitMessage(ctx, "Saved successfully", "success-subtle", false, ""))

	items := h.queue.Items()
	require.Len(t, items, 1)
	toast := items[0]
	assert.Equal(t, "Saved successfully", toast.Message)
	assert.Equal(t, model.IconCheck, toast.Icon)
	assert.Equal(t, "success-subtle", toast.Class)
	assert.False(t, toast.Persistent)

	w := h.widgets.get(t, toast)
	assert.Equal(t, 1, w.Shown())
	assert.True(t, w.el.Autohide())

	w.Hide(dom.ReasonExpired)
	assert.False(t, h.queue.Contains(toast))
	assert.Equal(t, 0, h.queue.Len())
}

func TestManager_SubmitMessage_ExplicitIconOverride(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.manager.SubmitMessage(testContext(t), "hi", "danger-subtle", false, "custom-icon"))

	items := h.queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "custom-icon", items[0].Icon)
}

func TestManager_SubmitMessage_UnknownStyleHasNoIcon(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.manager.SubmitMessage(testContext(t), "plain", "", false, ""))

	items := h.queue.Items()
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Icon)
}

func TestManager_SubmitMessage_PersistentDisablesAutohide(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.manager.SubmitMessage(testContext(t), "stay", "warning-subtle", true, ""))

	toast := h.queue.Items()[0]
	el, err := h.doc.GetElementByID(toast.ElementID())
	require.NoError(t, err)

	v, ok := el.Attribute(dom.AttrAutohide)
	assert.True(t, ok)
	assert.Equal(t, "false", v)
	assert.False(t, el.Autohide())
}

func TestManager_SubmitFromResponse(t *testing.T) {
	h := newHarness(t)

	err := h.manager.SubmitFromResponse(testContext(t), jsonResponse(`{"message":"Converted","toast_class":"success-subtle"}`))
	require.NoError(t, err)

	items := h.queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Converted", items[0].Message)
	assert.Equal(t, "success-subtle", items[0].Class)
	assert.Empty(t, items[0].Icon)
	assert.Equal(t, model.IconCheck, items[0].DisplayIcon())
	assert.Equal(t, 1, h.widgets.get(t, items[0]).Shown())
}

func TestManager_SubmitFromResponse_DecodeError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html", `<html>oops</html>`},
		{"trailing data", `{"message":"hi","toast_class":"success-subtle"}<html>oops</html>`},
		{"two objects", `{"message":"a"}{"message":"b"}`},
		{"null", `null`},
		{"array", `[{"message":"hi"}]`},
		{"string", `"hi"`},
		{"truncated object", `{"message":"hi","toast_cl`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			err := h.manager.SubmitFromResponse(testContext(t), jsonResponse(tt.body))
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, 0, h.queue.Len())
			assert.Equal(t, uint64(0), h.queue.Version())
		})
	}
}

func TestManager_BuildFromResponse_IsPure(t *testing.T) {
	h := newHarness(t)

	toast, err := h.manager.BuildFromResponse(jsonResponse(`{"message":"later","toast_class":"warning-subtle"}`))
	require.NoError(t, err)
	assert.Equal(t, "later", toast.Message)
	assert.Equal(t, "warning-subtle", toast.Class)
	assert.Equal(t, 0, h.queue.Len())

	require.NoError(t, h.manager.SubmitPrebuilt(testContext(t), toast))
	require.Len(t, h.queue.Items(), 1)
	assert.Same(t, toast, h.queue.Items()[0])
}

func TestManager_SubmitPrebuilt_RemovesByIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	a := &model.Toast{ID: 1, Message: "twin"}
	b := &model.Toast{ID: 2, Message: "twin"}
	require.NoError(t, h.manager.SubmitPrebuilt(ctx, a))
	require.NoError(t, h.manager.SubmitPrebuilt(ctx, b))

	h.widgets.get(t, b).Hide(dom.ReasonDismissed)

	items := h.queue.Items()
	require.Len(t, items, 1)
	assert.Same(t, a, items[0])
}

func TestManager_GrowAndShrink(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	const n = 12
	for i := range n {
		require.NoError(t, h.manager.SubmitMessage(ctx, "toast", "", i%2 == 0, ""))
	}
	items := h.queue.Items()
	require.Len(t, items, n)

	for _, i := range rand.Perm(n) {
		h.widgets.get(t, items[i]).Hide(dom.ReasonDismissed)
	}

	assert.Equal(t, 0, h.queue.Len())
}

func TestManager_HiddenTwiceIsNoop(t *testing.T) {
	var hidden []string
	h := newHarness(t, WithHiddenHook(func(_ *model.Toast, reason string) {
		hidden = append(hidden, reason)
	}))

	require.NoError(t, h.manager.SubmitMessage(testContext(t), "once", "", false, ""))
	toast := h.queue.Items()[0]
	w := h.widgets.get(t, toast)

	w.Hide(dom.ReasonDismissed)
	w.el.Dispatch(dom.EventHidden)

	assert.Equal(t, []string{dom.ReasonDismissed}, hidden)
	assert.Equal(t, 0, h.queue.Len())
}

func TestManager_Dismiss(t *testing.T) {
	var reasons []string
	h := newHarness(t, WithHiddenHook(func(_ *model.Toast, reason string) {
		reasons = append(reasons, reason)
	}))

	require.NoError(t, h.manager.SubmitMessage(testContext(t), "close me", "", true, ""))
	toast := h.queue.Items()[0]

	require.NoError(t, h.manager.Dismiss(toast))
	assert.Equal(t, 0, h.queue.Len())
	assert.Equal(t, []string{dom.ReasonClosed}, reasons)

	// Already gone.
	require.NoError(t, h.manager.Dismiss(toast))
}

func TestManager_DismissAll(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	for range 3 {
		require.NoError(t, h.manager.SubmitMessage(ctx, "bulk", "", true, ""))
	}
	h.manager.DismissAll()
	assert.Equal(t, 0, h.queue.Len())
}

func TestManager_DismissBeforeRender(t *testing.T) {
	q := store.NewQueue()
	doc := dom.NewDocument()
	widgets := newFakeWidgets()
	t.Cleanup(func() { _ = q.Close() })

	var reasons []string
	m := NewManager(q, doc, widgets, WithHiddenHook(func(_ *model.Toast, reason string) {
		reasons = append(reasons, reason)
	}))

	ctx := testContext(t)
	toast := NewMessage("replaced early", model.ClassWarning, true, "")
	done := make(chan error, 1)
	go func() { done <- m.SubmitPrebuilt(ctx, toast) }()

	require.Eventually(t, func() bool { return q.Contains(toast) }, time.Second, time.Millisecond)

	// No render pass has mounted the element yet.
	require.NoError(t, m.Dismiss(toast))
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []string{dom.ReasonClosed}, reasons)

	r := &fakeRenderer{queue: q, doc: doc}
	r.sync()

	require.NoError(t, <-done)
	assert.False(t, doc.Has(toast.ElementID()))
	assert.Empty(t, widgets.widgets)
	assert.Equal(t, []string{dom.ReasonClosed}, reasons)
}

func TestManager_ShowHook(t *testing.T) {
	var shown []*model.Toast
	h := newHarness(t,
		WithShowHook(func(t *model.Toast) { shown = append(shown, t) }),
		WithShowHook(func(*model.Toast) { panic("hook failure") }),
	)

	require.NoError(t, h.manager.SubmitMessage(testContext(t), "hooked", "", false, ""))
	require.Len(t, shown, 1)
	assert.Equal(t, "hooked", shown[0].Message)

	// A failing hook does not take the toast down with it.
	assert.Equal(t, 1, h.queue.Len())
}

func TestManager_WidgetErrorIsIsolated(t *testing.T) {
	h := newHarness(t)
	ctx := testContext(t)

	h.widgets.err = errors.New("no widget library")
	err := h.manager.SubmitMessage(ctx, "broken", "", false, "")
	require.Error(t, err)

	var displayErr *DisplayError
	require.ErrorAs(t, err, &displayErr)
	assert.Equal(t, 0, h.queue.Len())

	h.widgets.err = nil
	require.NoError(t, h.manager.SubmitMessage(ctx, "works again", "", false, ""))
	assert.Equal(t, 1, h.queue.Len())
}

func TestManager_WidgetPanicIsIsolated(t *testing.T) {
	h := newHarness(t)

	h.widgets.panics = true
	err := h.manager.SubmitMessage(testContext(t), "boom", "", false, "")

	var displayErr *DisplayError
	require.ErrorAs(t, err, &displayErr)
	assert.Contains(t, displayErr.Error(), "widget panicked")
	assert.Equal(t, 0, h.queue.Len())
}

// detachedDocument never finds any element.
type detachedDocument struct{}

func (detachedDocument) GetElementByID(id string) (*dom.Element, error) {
	return nil, &dom.ElementNotFoundError{ID: id}
}

func TestManager_MissingElement(t *testing.T) {
	q := store.NewQueue()
	r := startFakeRenderer(q, dom.NewDocument())
	t.Cleanup(func() {
		_ = q.Close()
		<-r.done
	})

	m := NewManager(q, detachedDocument{}, newFakeWidgets())
	err := m.SubmitMessage(testContext(t), "lost", "", false, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, dom.ErrElementNotFound)
	assert.Equal(t, 0, q.Len())
}

func TestManager_RenderWaitCancelled(t *testing.T) {
	q := store.NewQueue()
	defer q.Close()

	// No renderer is running, so the render wait can only end with the context.
	m := NewManager(q, dom.NewDocument(), newFakeWidgets())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := m.SubmitMessage(ctx, "never rendered", "", false, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, q.Len())
}

func TestDecode(t *testing.T) {
	toast, err := Decode(strings.NewReader(`{"message":"m","toast_class":"danger-subtle","extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, "m", toast.Message)
	assert.Equal(t, "danger-subtle", toast.Class)
	assert.NotZero(t, toast.ID)

	_, err = Decode(strings.NewReader(``))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, io.EOF)

	_, err = Decode(strings.NewReader(" null \n"))
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = Decode(strings.NewReader(`{"message":"a"} {"message":"b"}`))
	require.ErrorAs(t, err, &decodeErr)

	toast, err = Decode(strings.NewReader("\n {\"message\":\"padded\"}\n"))
	require.NoError(t, err)
	assert.Equal(t, "padded", toast.Message)
}
