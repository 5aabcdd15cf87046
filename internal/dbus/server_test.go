package dbus

import (
	"encoding/xml"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_NotifyAssignsIDs(t *testing.T) {
	s := NewNotificationServer(nil)

	var got []*Notification
	var ids []uint32
	s.SetNotifyHandler(func(n *Notification, id uint32) {
		got = append(got, n)
		ids = append(ids, id)
	})

	first, dErr := s.Notify("app", 0, "icon", "one", "", nil, nil, -1)
	require.Nil(t, dErr)
	second, dErr := s.Notify("app", 0, "", "two", "body", nil, map[string]dbus.Variant{}, 0)
	require.Nil(t, dErr)

	assert.Equal(t, uint32(1), first)
	assert.Equal(t, uint32(2), second)
	assert.Equal(t, []uint32{1, 2}, ids)
	require.Len(t, got, 2)
	assert.Equal(t, "icon", got[0].AppIcon)
	assert.Equal(t, "two: body", got[1].Message())
	assert.True(t, got[1].Persistent())
	assert.True(t, s.IsActive(first))
}

func TestServer_NotifyReplacesActiveID(t *testing.T) {
	s := NewNotificationServer(nil)

	id, _ := s.Notify("app", 0, "", "v1", "", nil, nil, -1)
	replaced, _ := s.Notify("app", id, "", "v2", "", nil, nil, -1)
	assert.Equal(t, id, replaced)

	// An inactive replaces_id gets a fresh ID.
	s.MarkClosed(id)
	fresh, _ := s.Notify("app", id, "", "v3", "", nil, nil, -1)
	assert.NotEqual(t, id, fresh)
}

func TestServer_CloseNotificationCallsHandler(t *testing.T) {
	s := NewNotificationServer(nil)

	var closed []uint32
	s.SetCloseHandler(func(id uint32) { closed = append(closed, id) })

	id, _ := s.Notify("app", 0, "", "close me", "", nil, nil, -1)

	require.Nil(t, s.CloseNotification(id))
	require.Nil(t, s.CloseNotification(999))

	assert.Equal(t, []uint32{id}, closed)
	// The handler's hidden path marks it closed, not the call itself.
	assert.True(t, s.IsActive(id))
}

func TestServer_CloseWithReason(t *testing.T) {
	s := NewNotificationServer(nil)
	id, _ := s.Notify("app", 0, "", "x", "", nil, nil, -1)

	// Not connected, so emitting fails but the ID is released.
	err := s.CloseWithReason(id, CloseReasonExpired)
	assert.Error(t, err)
	assert.False(t, s.IsActive(id))

	// Second close is a no-op.
	assert.NoError(t, s.CloseWithReason(id, CloseReasonExpired))
}

func TestServer_GetServerInformation(t *testing.T) {
	s := NewNotificationServer(nil)
	s.SetServerInfo(ServerInfo{Name: "toasterd", Vendor: "toaster", Version: "1.0.0", SpecVersion: "1.2"})

	name, vendor, version, spec, dErr := s.GetServerInformation()
	require.Nil(t, dErr)
	assert.Equal(t, "toasterd", name)
	assert.Equal(t, "toaster", vendor)
	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, "1.2", spec)

	caps, dErr := s.GetCapabilities()
	require.Nil(t, dErr)
	assert.Equal(t, ServerCapabilities, caps)
}

func TestIntrospectXML(t *testing.T) {
	var node introspect.Node
	require.NoError(t, xml.Unmarshal([]byte(introspectXML), &node))

	require.Len(t, node.Interfaces, 2)
	iface := node.Interfaces[0]
	assert.Equal(t, DBusInterface, iface.Name)

	var methods []string
	for _, m := range iface.Methods {
		methods = append(methods, m.Name)
	}
	assert.Equal(t, []string{"GetCapabilities", "GetServerInformation", "Notify", "CloseNotification"}, methods)
	require.Len(t, iface.Signals, 1)
	assert.Equal(t, "NotificationClosed", iface.Signals[0].Name)
}
