// Package dbus implements the org.freedesktop.Notifications D-Bus interface.
// It provides a server that turns Notify calls into toasts, a passive monitor
// that mirrors another daemon's traffic, and a client used by toaster send.
package dbus
