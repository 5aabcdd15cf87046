package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/toaster/internal/dbus"
	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/toast"
)

// Signaler reports closed notifications back to D-Bus clients.
type Signaler interface {
	CloseWithReason(id uint32, reason dbus.CloseReason) error
}

// SubmitObserver is told about every toast the bridge submits.
type SubmitObserver func(class string, err error)

// Bridge turns D-Bus notifications into toasts and keeps the mapping between
// notification IDs and queued toasts so closes travel both ways.
type Bridge struct {
	ctx     context.Context
	manager *toast.Manager
	logger  *slog.Logger

	mu       sync.Mutex
	signaler Signaler
	observer SubmitObserver
	byDBusID map[uint32]*model.Toast
	byToast  map[*model.Toast]uint32

	wg sync.WaitGroup
}

// NewBridge creates a bridge submitting to manager. ctx bounds every submission.
func NewBridge(ctx context.Context, manager *toast.Manager, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		ctx:      ctx,
		manager:  manager,
		logger:   logger,
		byDBusID: make(map[uint32]*model.Toast),
		byToast:  make(map[*model.Toast]uint32),
	}
}

// SetSignaler sets where NotificationClosed signals are sent.
func (b *Bridge) SetSignaler(s Signaler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signaler = s
}

// SetSubmitObserver sets the observer called after each submission completes.
func (b *Bridge) SetSubmitObserver(observer SubmitObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = observer
}

// HandleNotify submits a toast for n. It returns immediately; the toast is displayed
// in the background. An id of 0 submits an untracked toast.
func (b *Bridge) HandleNotify(n *dbus.Notification, id uint32) {
	t := toast.NewMessage(n.Message(), n.ToastClass(), n.Persistent(), n.AppIcon)

	var replaced *model.Toast
	b.mu.Lock()
	if id != 0 {
		if old, ok := b.byDBusID[id]; ok {
			replaced = old
			delete(b.byToast, old)
		}
		b.byDBusID[id] = t
		b.byToast[t] = id
	}
	observer := b.observer
	b.mu.Unlock()

	if replaced != nil {
		if err := b.manager.Dismiss(replaced); err != nil {
			b.logger.Warn("failed to dismiss replaced toast", "id", id, "toast_id", replaced.ID, "error", err)
		}
	}

	b.logger.Debug("bridging notification",
		"id", id,
		"toast_id", t.ID,
		"app_name", n.AppName,
		"class", t.Class,
		"persistent", t.Persistent,
	)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		err := b.manager.SubmitPrebuilt(b.ctx, t)
		if observer != nil {
			observer(t.Class, err)
		}
		if err != nil {
			b.logger.Warn("failed to display notification", "id", id, "toast_id", t.ID, "error", err)
			if b.forget(t) != 0 {
				b.signal(id, dbus.CloseReasonUndefined)
			}
		}
	}()
}

// HandleClose dismisses the toast bridged for id.
func (b *Bridge) HandleClose(id uint32) {
	b.mu.Lock()
	t, ok := b.byDBusID[id]
	b.mu.Unlock()

	if !ok {
		b.signal(id, dbus.CloseReasonClosed)
		return
	}
	if err := b.manager.Dismiss(t); err != nil {
		b.logger.Warn("failed to close notification", "id", id, "error", err)
	}
}

// OnHidden emits NotificationClosed for bridged toasts. It matches toast.HiddenHook.
func (b *Bridge) OnHidden(t *model.Toast, reason string) {
	if id := b.forget(t); id != 0 {
		b.signal(id, dbus.CloseReasonFor(reason))
	}
}

// Lookup returns the toast bridged for id.
func (b *Bridge) Lookup(id uint32) (*model.Toast, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.byDBusID[id]
	return t, ok
}

// Len returns the number of bridged toasts.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byDBusID)
}

// Wait blocks until every in-flight submission has finished.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// forget drops the mapping for t and returns its notification ID, or 0 if untracked.
func (b *Bridge) forget(t *model.Toast) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byToast[t]
	if !ok {
		return 0
	}
	delete(b.byToast, t)
	if b.byDBusID[id] == t {
		delete(b.byDBusID, id)
	}
	return id
}

func (b *Bridge) signal(id uint32, reason dbus.CloseReason) {
	b.mu.Lock()
	s := b.signaler
	b.mu.Unlock()

	if s == nil {
		return
	}
	if err := s.CloseWithReason(id, reason); err != nil {
		b.logger.Warn("failed to emit NotificationClosed signal", "id", id, "reason", reason.String(), "error", err)
	}
}
