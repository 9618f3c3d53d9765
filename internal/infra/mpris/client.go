// Package mpris provides a player backend for MPRIS capable media players
// on the D-Bus session bus.
package mpris

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autoskip/internal/domain/track"
)

const (
	objectPath          = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerInterface     = "org.mpris.MediaPlayer2.Player"
	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"

	// DefaultBusName is the bus name of the Spotify desktop client.
	DefaultBusName = "org.mpris.MediaPlayer2.spotify"
)

// Client talks to one MPRIS player.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	busName string
}

// New connects to the session bus and targets the player owning busName.
func New(busName string) (*Client, error) {
	if busName == "" {
		busName = DefaultBusName
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}

	return &Client{
		conn:    conn,
		obj:     conn.Object(busName, objectPath),
		busName: busName,
	}, nil
}

// Conn returns the underlying session bus connection.
func (c *Client) Conn() *dbus.Conn {
	return c.conn
}

// Close closes the session bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// CurrentTrack reads the player's Metadata property. A player that is not
// running is reported as track.ErrNotReady.
func (c *Client) CurrentTrack(ctx context.Context) (track.Track, error) {
	if err := ctx.Err(); err != nil {
		return track.Null, err
	}

	v, err := c.obj.GetProperty(playerInterface + ".Metadata")
	if err != nil {
		return track.Null, errors.Mark(errors.Wrapf(err, "failed to read metadata from %s", c.busName), track.ErrNotReady)
	}

	metadata, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return track.Null, errors.Mark(errors.Newf("unexpected metadata type %s", v.Signature()), track.ErrNotReady)
	}
	return metadataToTrack(metadata), nil
}

// Subscribe forwards Metadata changes of the player to fn until ctx is done.
func (c *Client) Subscribe(ctx context.Context, fn func(track.Track)) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchSender(c.busName),
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
	if err := c.conn.AddMatchSignal(opts...); err != nil {
		return errors.Wrap(err, "failed to add match rule")
	}
	defer func() {
		if err := c.conn.RemoveMatchSignal(opts...); err != nil {
			zlog.Debug().Msgf("mpris: failed to remove match rule: %v", err)
		}
	}()

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)
	defer c.conn.RemoveSignal(signals)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return errors.New("session bus connection closed")
			}
			t, ok := trackFromSignal(sig)
			if !ok {
				continue
			}
			fn(t)
		}
	}
}

// Skip asks the player to go to the next track without waiting for a reply.
func (c *Client) Skip(ctx context.Context) error {
	call := c.obj.CallWithContext(ctx, playerInterface+".Next", dbus.FlagNoReplyExpected)
	if call.Err != nil {
		return errors.Wrap(call.Err, "failed to call Next")
	}
	return nil
}

// trackFromSignal extracts the new track from a PropertiesChanged signal of
// the player interface. Signals without new Metadata are rejected.
func trackFromSignal(sig *dbus.Signal) (track.Track, bool) {
	if sig == nil || sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return track.Null, false
	}
	if iface, _ := sig.Body[0].(string); iface != playerInterface {
		return track.Null, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return track.Null, false
	}
	v, ok := changed["Metadata"]
	if !ok {
		return track.Null, false
	}
	metadata, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return track.Null, false
	}
	return metadataToTrack(metadata), true
}

// metadataToTrack maps xesam metadata onto a track. Metadata without a
// title is the null track.
func metadataToTrack(metadata map[string]dbus.Variant) track.Track {
	title, _ := metadata["xesam:title"].Value().(string)
	if title == "" {
		return track.Null
	}

	var artist string
	if artists, ok := metadata["xesam:artist"].Value().([]string); ok && len(artists) > 0 {
		artist = artists[0]
	}

	var score float64
	switch v := metadata["xesam:autoRating"].Value().(type) {
	case float64:
		score = v
	case int32:
		score = float64(v)
	case int64:
		score = float64(v)
	}

	return track.New(title, artist, score)
}
