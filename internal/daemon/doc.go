// Package daemon provides the orchestration pieces of toasterd.
// It bridges D-Bus notifications to the toast manager, reloads configuration
// and theme files when they change, and toasts about the daemon's own events.
package daemon
