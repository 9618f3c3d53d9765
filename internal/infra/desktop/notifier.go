// Package desktop sends freedesktop desktop notifications over D-Bus.
package desktop

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"

	"github.com/osa030/autoskip/internal/app/notification"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod      = notificationsName + ".Notify"
)

// Config represents notifier configuration.
type Config struct {
	AppName string
	Timeout time.Duration // Negative lets the server decide
}

// Notifier sends notifications to the desktop notification server.
type Notifier struct {
	conn    *dbus.Conn // Owned connection, nil when shared
	obj     dbus.BusObject
	appName string
	timeout time.Duration
}

// New creates a notifier on an existing session bus connection.
func New(conn *dbus.Conn, cfg Config) *Notifier {
	return newNotifier(conn.Object(notificationsName, notificationsPath), cfg)
}

// Dial opens a private session bus connection for the notifier.
func Dial(cfg Config) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}
	n := New(conn, cfg)
	n.conn = conn
	return n, nil
}

// Close releases the connection opened by Dial.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

func newNotifier(obj dbus.BusObject, cfg Config) *Notifier {
	if cfg.AppName == "" {
		cfg.AppName = "autoskip"
	}
	return &Notifier{obj: obj, appName: cfg.AppName, timeout: cfg.Timeout}
}

// Send shows a notification with the given body and summary.
func (n *Notifier) Send(ctx context.Context, message, title string) error {
	expire := int32(-1)
	if n.timeout >= 0 {
		expire = int32(n.timeout / time.Millisecond)
	}

	call := n.obj.CallWithContext(ctx, notifyMethod, 0,
		n.appName,                 // app_name
		uint32(0),                 // replaces_id
		"",                        // app_icon
		title,                     // summary
		message,                   // body
		[]string{},                // actions
		map[string]dbus.Variant{}, // hints
		expire,                    // expire_timeout
	)
	if call.Err != nil {
		return errors.Wrap(call.Err, "failed to send notification")
	}
	return nil
}

// Sink returns a notification sink announcing automatic skips while
// notifications are enabled.
func (n *Notifier) Sink() notification.Sink {
	return notification.SinkFunc(func(ctx context.Context, event notification.Event) error {
		if event.Type != notification.EventTrackChanged || !event.Skipped || !event.NotificationsEnabled {
			return nil
		}
		return n.Send(ctx, event.Track.Artist+" - "+event.Track.Title, "Skipped")
	})
}
