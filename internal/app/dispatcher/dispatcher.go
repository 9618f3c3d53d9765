package dispatcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/autoskip/internal/app/command"
	"github.com/osa030/autoskip/internal/app/decision"
	"github.com/osa030/autoskip/internal/app/notification"
	"github.com/osa030/autoskip/internal/domain/rule"
	"github.com/osa030/autoskip/internal/domain/track"
)

// ErrShuttingDown is returned by Start and Sync after Shutdown.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// Player is the media player integration.
type Player interface {
	// CurrentTrack returns the playing track or an error wrapping
	// track.ErrNotReady.
	CurrentTrack(ctx context.Context) (track.Track, error)
	// Subscribe calls fn for every track change until ctx is done.
	Subscribe(ctx context.Context, fn func(track.Track)) error
	// Skip advances to the next track.
	Skip(ctx context.Context) error
}

// RuleStore is the rule store as used by the dispatcher.
type RuleStore interface {
	command.RuleStore
	Get(artist string) (*rule.ArtistRule, bool)
}

// Config holds dispatcher configuration.
type Config struct {
	ConnectRetryInterval time.Duration // Pause between startup queries
}

// Dispatcher owns the last seen track and runs every track change and
// command line under one lock, so rule and settings access never overlaps.
type Dispatcher struct {
	mu sync.Mutex

	state     State
	pastTrack track.Track

	rules     RuleStore
	settings  command.SettingsStore
	player    Player
	processor *command.Processor
	events    *notification.Manager
	config    Config
}

// New creates a new dispatcher. opts are passed to the command processor.
func New(cfg Config, rules RuleStore, settings command.SettingsStore, player Player, events *notification.Manager, opts ...command.Option) *Dispatcher {
	if cfg.ConnectRetryInterval <= 0 {
		cfg.ConnectRetryInterval = time.Second
	}

	d := &Dispatcher{
		state:     StateIdle,
		pastTrack: track.Null,
		rules:     rules,
		settings:  settings,
		player:    player,
		events:    events,
		config:    cfg,
	}

	opts = append(opts, command.WithFeedback(func(f command.Feedback) {
		d.publishLocked(context.Background(), notification.FeedbackEvent(f))
	}))
	d.processor = command.NewProcessor(rules, settings, player, opts...)

	return d
}

// State returns the current dispatcher state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// PastTrack returns the last track a decision was made for.
func (d *Dispatcher) PastTrack() track.Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pastTrack
}

// Start blocks until the player reports a track, retrying forever at the
// configured interval, then evaluates that first track.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	settings := d.settings.Get()
	d.publishLocked(ctx, notification.Status("Autoskip "+onOff(settings.AutoSkipEnabled), settings.AutoSkipEnabled))
	d.mu.Unlock()

	first, err := d.waitForTrack(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateShuttingDown {
		return ErrShuttingDown
	}

	d.pastTrack = first
	if first.IsNull() {
		zlog.Info().Msg("dispatcher: player has no track yet")
		return nil
	}

	d.state = StateProcessingTrackChange
	d.evaluateLocked(ctx, first)
	d.state = StateIdle
	return nil
}

// Sync queries the player once and records the result as the current track
// without evaluating it.
func (d *Dispatcher) Sync(ctx context.Context) error {
	t, err := d.player.CurrentTrack(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to query current track")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateShuttingDown {
		return ErrShuttingDown
	}
	d.pastTrack = t
	return nil
}

// waitForTrack polls the player until it answers.
func (d *Dispatcher) waitForTrack(ctx context.Context) (track.Track, error) {
	attempt := 0
	t, err := backoff.Retry(ctx, func() (track.Track, error) {
		attempt++
		return d.player.CurrentTrack(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(d.config.ConnectRetryInterval)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			if attempt == 1 {
				zlog.Info().Msgf("dispatcher: waiting for player: %v", err)
				return
			}
			zlog.Debug().Msgf("dispatcher: player not ready (attempt %d), retrying in %v: %v", attempt, next, err)
		}),
	)
	if err != nil {
		return track.Null, errors.Wrap(err, "stopped waiting for player")
	}
	return t, nil
}

// HandleTrackChange evaluates t unless it repeats the last track or is the
// null track.
func (d *Dispatcher) HandleTrackChange(ctx context.Context, t track.Track) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateShuttingDown {
		return
	}
	if t == d.pastTrack || t.IsNull() {
		zlog.Debug().Msgf("dispatcher: ignoring track change: %s", t)
		return
	}

	d.state = StateProcessingTrackChange
	defer func() { d.state = StateIdle }()

	d.pastTrack = t
	d.evaluateLocked(ctx, t)
}

// HandleCommand runs every recognized token of line, left to right.
// Unknown tokens are skipped.
func (d *Dispatcher) HandleCommand(ctx context.Context, line string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateShuttingDown {
		return
	}

	d.state = StateProcessingCommand
	defer func() { d.state = StateIdle }()

	for _, token := range strings.Fields(line) {
		action, ok := command.Parse(token)
		if !ok {
			zlog.Debug().Msgf("dispatcher: ignoring unknown command %q", token)
			continue
		}

		zlog.Debug().Msgf("dispatcher: running command: action=%s track=%s", action, d.pastTrack)
		if err := d.processor.Execute(ctx, action, d.pastTrack); err != nil {
			if errors.Is(err, command.ErrNoTrack) {
				zlog.Warn().Msgf("dispatcher: %v", err)
				continue
			}
			zlog.Error().Msgf("dispatcher: command %s failed: %v", action, err)
		}
	}
}

// Run drives the two event sources until ctx is done: the player
// subscription and the command lines. A closed lines channel ends only the
// command side.
func (d *Dispatcher) Run(ctx context.Context, lines <-chan string) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := d.player.Subscribe(gctx, func(t track.Track) {
			d.HandleTrackChange(gctx, t)
		})
		if err != nil && gctx.Err() == nil {
			return errors.Wrap(err, "player subscription failed")
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					zlog.Debug().Msg("dispatcher: command input closed")
					return nil
				}
				d.HandleCommand(gctx, line)
			}
		}
	})

	return g.Wait()
}

// Shutdown moves the dispatcher to its terminal state.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateShuttingDown
}

// evaluateLocked decides on t, skips if needed and publishes the result.
// Must be called with lock held.
func (d *Dispatcher) evaluateLocked(ctx context.Context, t track.Track) {
	artistRule, _ := d.rules.Get(t.Artist)
	settings := d.settings.Get()

	result := decision.Decide(t, artistRule, settings)
	skipped := decision.Execute(ctx, result, settings, d.player)

	zlog.Info().Msgf("dispatcher: track=%s skip=%t skipped=%t matches=%v",
		t, result.ShouldSkip, skipped, result.Matches)

	d.publishLocked(ctx, notification.TrackChanged(t, result, skipped))
}

// publishLocked broadcasts an event. Must be called with lock held.
func (d *Dispatcher) publishLocked(ctx context.Context, event notification.Event) {
	if d.events == nil {
		return
	}
	event.NotificationsEnabled = d.settings.Get().NotificationsEnabled
	d.events.Broadcast(ctx, event)
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
