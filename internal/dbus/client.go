package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Client sends notifications to whichever daemon owns the notification bus name.
type Client struct {
	conn *dbus.Conn
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{conn: conn}, nil
}

// ToastRequest describes a toast sent over D-Bus.
type ToastRequest struct {
	AppName    string
	Message    string
	Class      string
	Icon       string
	Persistent bool
}

// Hints returns the hints dictionary that carries the toast style and persistence.
func (r ToastRequest) Hints() map[string]dbus.Variant {
	hints := make(map[string]dbus.Variant)
	if r.Class != "" {
		hints[HintClass] = dbus.MakeVariant(r.Class)
	}
	if r.Persistent {
		hints["resident"] = dbus.MakeVariant(true)
	}
	return hints
}

// ExpireTimeout returns 0 (never) for persistent toasts, otherwise -1 (server default).
func (r ToastRequest) ExpireTimeout() int32 {
	if r.Persistent {
		return 0
	}
	return -1
}

// Notify sends a toast and returns the notification ID assigned by the daemon.
func (c *Client) Notify(ctx context.Context, req ToastRequest) (uint32, error) {
	appName := req.AppName
	if appName == "" {
		appName = "toaster"
	}

	obj := c.conn.Object(DBusBusName, DBusPath)
	call := obj.CallWithContext(ctx, DBusInterface+".Notify", 0,
		appName,
		uint32(0),
		req.Icon,
		req.Message,
		"",
		[]string{},
		req.Hints(),
		req.ExpireTimeout(),
	)

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("notify call failed: %w", err)
	}
	return id, nil
}

// CloseNotification asks the daemon to close a notification.
func (c *Client) CloseNotification(ctx context.Context, id uint32) error {
	obj := c.conn.Object(DBusBusName, DBusPath)
	if err := obj.CallWithContext(ctx, DBusInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close notification call failed: %w", err)
	}
	return nil
}
