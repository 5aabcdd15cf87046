package dbus

import "fmt"

// CloseWithReason stops tracking id and emits NotificationClosed for it.
// Closing an ID that is not active is a no-op.
func (s *NotificationServer) CloseWithReason(id uint32, reason CloseReason) error {
	if !s.MarkClosed(id) {
		return nil
	}
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := s.conn.Emit(DBusPath, DBusInterface+".NotificationClosed", id, uint32(reason)); err != nil {
		return fmt.Errorf("failed to emit NotificationClosed for %d: %w", id, err)
	}
	s.logger.Debug("notification closed", "id", id, "reason", reason.String())
	return nil
}
