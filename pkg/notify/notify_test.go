package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Notification{
	Attribution: "GPU Speed Check",
	Title:       "PCIe link degraded",
	Body:        "10de:2684 running at 8GT/s instead of 16GT/s",
	Expiration:  10 * time.Second,
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("none", func() (Notifier, error) { return Nop{}, nil }))
	assert.Error(t, r.Register("none", func() (Notifier, error) { return Nop{}, nil }), "duplicate name")
	assert.Error(t, r.Register("", func() (Notifier, error) { return Nop{}, nil }), "empty name")
	assert.Error(t, r.Register("nil", nil), "nil factory")

	require.NoError(t, r.Register("broken", func() (Notifier, error) { return nil, errors.New("no display") }))

	n, err := r.Get("none")
	require.NoError(t, err)
	assert.Equal(t, "none", n.Name())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = r.Get("broken")
	assert.ErrorContains(t, err, "no display")

	assert.Equal(t, []string{"broken", "none"}, r.List())
}

func TestGlobalRegistry(t *testing.T) {
	assert.Equal(t, []string{"dbus", "log", "none"}, List())

	n, err := Get("log")
	require.NoError(t, err)
	assert.Equal(t, "log", n.Name())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	require.NoError(t, NewLog(l).Show(context.Background(), sample))

	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, `attribution="GPU Speed Check"`)
	assert.Contains(t, out, "instead of 16GT/s")
}

// fakeObject records the Notify call
type fakeObject struct {
	dbus.BusObject
	method string
	args   []interface{}
	err    error
}

func (f *fakeObject) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	return &dbus.Call{Body: []interface{}{uint32(42)}}
}

func TestDBusNotifier(t *testing.T) {
	obj := &fakeObject{}
	d := &DBus{object: func() (dbus.BusObject, error) { return obj, nil }}

	require.NoError(t, d.Show(context.Background(), sample))

	assert.Equal(t, "org.freedesktop.Notifications.Notify", obj.method)
	require.Len(t, obj.args, 8)
	assert.Equal(t, "GPU Speed Check", obj.args[0])
	assert.Equal(t, uint32(0), obj.args[1])
	assert.Equal(t, sample.Title, obj.args[3])
	assert.Equal(t, sample.Body, obj.args[4])
	assert.Equal(t, int32(10000), obj.args[7])

	// Zero expiration leaves the timeout to the server
	require.NoError(t, d.Show(context.Background(), Notification{Title: "t"}))
	assert.Equal(t, int32(-1), obj.args[7])
}

func TestDBusNotifierErrors(t *testing.T) {
	d := &DBus{object: func() (dbus.BusObject, error) { return nil, errors.New("no session bus") }}
	assert.ErrorContains(t, d.Show(context.Background(), sample), "no session bus")

	obj := &fakeObject{err: errors.New("service unknown")}
	d = &DBus{object: func() (dbus.BusObject, error) { return obj, nil }}
	assert.ErrorContains(t, d.Show(context.Background(), sample), "service unknown")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Show(context.Background(), sample))
}
