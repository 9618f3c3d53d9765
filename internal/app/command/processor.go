package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autoskip/internal/domain/rule"
	"github.com/osa030/autoskip/internal/domain/track"
)

// ErrNoTrack is returned for track-scoped actions while no track is known.
var ErrNoTrack = errors.New("no current track")

// RuleStore is the part of the rule store the processor mutates.
type RuleStore interface {
	GetOrCreate(artist string) *rule.ArtistRule
	Persist() error
}

// SettingsStore is the part of the settings store the processor mutates.
type SettingsStore interface {
	Get() rule.Settings
	Update(fn func(*rule.Settings))
	Persist() error
}

// Skipper advances the player to the next track.
type Skipper interface {
	Skip(ctx context.Context) error
}

// Notifier delivers a desktop notification.
type Notifier interface {
	Send(ctx context.Context, message, title string) error
}

// Feedback describes the visible outcome of an action.
type Feedback struct {
	Action  Action
	Message string
	Enabled bool // Whether the action switched something on
	Track   track.Track
}

// Processor executes actions against the stores. It is not safe for
// concurrent use; the dispatcher serializes calls.
type Processor struct {
	rules    RuleStore
	settings SettingsStore
	player   Skipper
	notifier Notifier
	report   func(Feedback)
	title    string
}

// Option configures a Processor.
type Option func(*Processor)

// WithNotifier sets the notifier used when auto-skip is toggled.
func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithFeedback sets the callback receiving action feedback.
func WithFeedback(fn func(Feedback)) Option {
	return func(p *Processor) { p.report = fn }
}

// WithNotificationTitle sets the title of desktop notifications.
func WithNotificationTitle(title string) Option {
	return func(p *Processor) { p.title = title }
}

// NewProcessor creates a new command processor.
func NewProcessor(rules RuleStore, settings SettingsStore, player Skipper, opts ...Option) *Processor {
	p := &Processor{
		rules:    rules,
		settings: settings,
		player:   player,
		report:   func(Feedback) {},
		title:    "autoskip",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs a single action. current is the track the action applies to.
func (p *Processor) Execute(ctx context.Context, action Action, current track.Track) error {
	if action.TrackScoped() && current.IsNull() {
		return errors.Wrapf(ErrNoTrack, "cannot run %s", action)
	}

	switch action {
	case ActionToggle:
		return p.toggleAutoSkip(ctx)
	case ActionSkip:
		p.skip(ctx)
		p.report(Feedback{Action: action, Message: "Skipped!", Track: current})
		return nil
	case ActionBlacklistSong:
		return p.blacklistSong(ctx, current)
	case ActionBlacklistArtist:
		return p.blacklistArtist(ctx, current)
	case ActionWhitelistSong:
		return p.whitelistSong(current)
	case ActionWhitelistArtist:
		return p.whitelistArtist(current)
	case ActionNotify:
		return p.toggleNotifications()
	case ActionHelp:
		p.report(Feedback{Action: action, Message: helpText()})
		return nil
	default:
		return errors.Newf("unsupported action: %s", action)
	}
}

func (p *Processor) toggleAutoSkip(ctx context.Context) error {
	var enabled bool
	p.settings.Update(func(s *rule.Settings) {
		s.AutoSkipEnabled = !s.AutoSkipEnabled
		enabled = s.AutoSkipEnabled
	})
	if err := p.settings.Persist(); err != nil {
		return err
	}

	msg := "Autoskip " + onOff(enabled)
	if p.notifier != nil && p.settings.Get().NotificationsEnabled {
		if err := p.notifier.Send(ctx, msg, p.title); err != nil {
			zlog.Debug().Msgf("command: notification failed (ignored): %v", err)
		}
	}
	p.report(Feedback{Action: ActionToggle, Message: msg, Enabled: enabled})
	return nil
}

func (p *Processor) toggleNotifications() error {
	var enabled bool
	p.settings.Update(func(s *rule.Settings) {
		s.NotificationsEnabled = !s.NotificationsEnabled
		enabled = s.NotificationsEnabled
	})
	if err := p.settings.Persist(); err != nil {
		return err
	}
	p.report(Feedback{Action: ActionNotify, Message: "Notifications " + onOff(enabled), Enabled: enabled})
	return nil
}

func (p *Processor) blacklistSong(ctx context.Context, current track.Track) error {
	added := p.rules.GetOrCreate(current.Artist).ToggleBlacklistedSong(current.Title)
	if added {
		p.skip(ctx)
	}
	p.report(Feedback{
		Action:  ActionBlacklistSong,
		Message: membershipMessage(added, current.Title, "blacklisted songs"),
		Enabled: added,
		Track:   current,
	})
	return p.rules.Persist()
}

func (p *Processor) blacklistArtist(ctx context.Context, current track.Track) error {
	added := p.rules.GetOrCreate(current.Artist).ToggleBlacklisted()
	if added {
		p.skip(ctx)
	}
	p.report(Feedback{
		Action:  ActionBlacklistArtist,
		Message: membershipMessage(added, current.Artist, "blacklisted artists"),
		Enabled: added,
		Track:   current,
	})
	return p.rules.Persist()
}

func (p *Processor) whitelistSong(current track.Track) error {
	added := p.rules.GetOrCreate(current.Artist).ToggleWhitelistedSong(current.Title)
	p.report(Feedback{
		Action:  ActionWhitelistSong,
		Message: membershipMessage(added, current.Title, "whitelisted songs"),
		Enabled: added,
		Track:   current,
	})
	return p.rules.Persist()
}

func (p *Processor) whitelistArtist(current track.Track) error {
	added := p.rules.GetOrCreate(current.Artist).ToggleWhitelisted()
	p.report(Feedback{
		Action:  ActionWhitelistArtist,
		Message: membershipMessage(added, current.Artist, "whitelisted artists"),
		Enabled: added,
		Track:   current,
	})
	return p.rules.Persist()
}

// skip is fire-and-forget.
func (p *Processor) skip(ctx context.Context) {
	if err := p.player.Skip(ctx); err != nil {
		zlog.Debug().Msgf("command: skip failed (ignored): %v", err)
	}
}

func membershipMessage(added bool, name, list string) string {
	if added {
		return fmt.Sprintf("Added %q to %s", name, list)
	}
	return fmt.Sprintf("Removed %q from %s", name, list)
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range commands {
		fmt.Fprintf(&b, "\n  %-12s %s", strings.Join(c.Tokens, ", "), c.Description)
	}
	return b.String()
}
