package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autoskip/internal/domain/rule"
	"github.com/osa030/autoskip/internal/domain/track"
)

type fakeRules struct {
	artists  map[string]*rule.ArtistRule
	persists int
}

func newFakeRules() *fakeRules {
	return &fakeRules{artists: make(map[string]*rule.ArtistRule)}
}

func (f *fakeRules) GetOrCreate(artist string) *rule.ArtistRule {
	if r, ok := f.artists[artist]; ok {
		return r
	}
	r := rule.NewArtistRule()
	f.artists[artist] = r
	return r
}

func (f *fakeRules) Persist() error {
	f.persists++
	return nil
}

type fakeSettings struct {
	settings   rule.Settings
	persists   int
	persistErr error
}

func (f *fakeSettings) Get() rule.Settings             { return f.settings }
func (f *fakeSettings) Update(fn func(*rule.Settings)) { fn(&f.settings) }
func (f *fakeSettings) Persist() error {
	f.persists++
	return f.persistErr
}

type fakePlayer struct {
	skips int
	err   error
}

func (f *fakePlayer) Skip(ctx context.Context) error {
	f.skips++
	return f.err
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Send(ctx context.Context, message, title string) error {
	f.messages = append(f.messages, message)
	return nil
}

var current = track.Track{Title: "A", Artist: "B", Score: 0.5}

func newTestProcessor() (*Processor, *fakeRules, *fakeSettings, *fakePlayer, *[]Feedback) {
	rules := newFakeRules()
	settings := &fakeSettings{settings: rule.DefaultSettings()}
	player := &fakePlayer{}
	feedback := &[]Feedback{}
	p := NewProcessor(rules, settings, player, WithFeedback(func(f Feedback) {
		*feedback = append(*feedback, f)
	}))
	return p, rules, settings, player, feedback
}

func TestParse(t *testing.T) {
	tests := []struct {
		token  string
		want   Action
		wantOK bool
	}{
		{token: "t", want: ActionToggle, wantOK: true},
		{token: "TOGGLE", want: ActionToggle, wantOK: true},
		{token: "s", want: ActionSkip, wantOK: true},
		{token: "Skip", want: ActionSkip, wantOK: true},
		{token: "bls", want: ActionBlacklistSong, wantOK: true},
		{token: "BLA", want: ActionBlacklistArtist, wantOK: true},
		{token: "wls", want: ActionWhitelistSong, wantOK: true},
		{token: "wla", want: ActionWhitelistArtist, wantOK: true},
		{token: "n", want: ActionNotify, wantOK: true},
		{token: "notify", want: ActionNotify, wantOK: true},
		{token: "h", want: ActionHelp, wantOK: true},
		{token: "help", want: ActionHelp, wantOK: true},
		{token: "blx", want: ActionUnknown, wantOK: false},
		{token: "", want: ActionUnknown, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := Parse(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokens(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"t", "toggle", "s", "skip", "bls", "bla", "wls", "wla", "n", "notify", "h", "help"},
		Tokens())
}

func TestProcessor_Toggle(t *testing.T) {
	p, _, settings, player, feedback := newTestProcessor()
	notifier := &fakeNotifier{}
	WithNotifier(notifier)(p)

	require.NoError(t, p.Execute(context.Background(), ActionToggle, current))
	assert.False(t, settings.settings.AutoSkipEnabled)
	assert.Equal(t, 1, settings.persists)
	assert.Equal(t, []string{"Autoskip disabled"}, notifier.messages)

	require.NoError(t, p.Execute(context.Background(), ActionToggle, current))
	assert.True(t, settings.settings.AutoSkipEnabled)
	assert.Equal(t, 2, settings.persists)
	assert.Equal(t, 0, player.skips)
	require.Len(t, *feedback, 2)
	assert.True(t, (*feedback)[1].Enabled)
}

func TestProcessor_Toggle_NotificationsDisabled(t *testing.T) {
	p, _, settings, _, _ := newTestProcessor()
	settings.settings.NotificationsEnabled = false
	notifier := &fakeNotifier{}
	WithNotifier(notifier)(p)

	require.NoError(t, p.Execute(context.Background(), ActionToggle, current))
	assert.Empty(t, notifier.messages)
}

func TestProcessor_Toggle_PersistError(t *testing.T) {
	p, _, settings, _, _ := newTestProcessor()
	settings.persistErr = errors.New("disk full")

	err := p.Execute(context.Background(), ActionToggle, current)
	require.Error(t, err)
	assert.False(t, settings.settings.AutoSkipEnabled, "in-memory change stands")
}

func TestProcessor_Skip(t *testing.T) {
	p, rules, settings, player, _ := newTestProcessor()
	player.err = errors.New("player gone")

	require.NoError(t, p.Execute(context.Background(), ActionSkip, current))
	assert.Equal(t, 1, player.skips)
	assert.Empty(t, rules.artists)
	assert.Equal(t, 0, settings.persists)
}

func TestProcessor_BlacklistSong_RoundTrip(t *testing.T) {
	p, rules, _, player, feedback := newTestProcessor()

	require.NoError(t, p.Execute(context.Background(), ActionBlacklistSong, current))
	assert.Equal(t, []string{"A"}, rules.artists["B"].BlacklistedSongs)
	assert.Equal(t, 1, player.skips)
	assert.Equal(t, 1, rules.persists)

	require.NoError(t, p.Execute(context.Background(), ActionBlacklistSong, current))
	assert.Empty(t, rules.artists["B"].BlacklistedSongs)
	assert.Equal(t, 1, player.skips, "removing from the blacklist must not skip")
	assert.Equal(t, 2, rules.persists)

	require.Len(t, *feedback, 2)
	assert.Equal(t, `Added "A" to blacklisted songs`, (*feedback)[0].Message)
	assert.Equal(t, `Removed "A" from blacklisted songs`, (*feedback)[1].Message)
}

func TestProcessor_BlacklistArtist(t *testing.T) {
	p, rules, _, player, feedback := newTestProcessor()

	require.NoError(t, p.Execute(context.Background(), ActionBlacklistArtist, current))
	assert.True(t, rules.artists["B"].Blacklisted)
	assert.Equal(t, 1, player.skips)

	require.NoError(t, p.Execute(context.Background(), ActionBlacklistArtist, current))
	assert.False(t, rules.artists["B"].Blacklisted)
	assert.Equal(t, 1, player.skips)
	assert.Equal(t, 2, rules.persists)
	assert.Equal(t, `Added "B" to blacklisted artists`, (*feedback)[0].Message)
}

func TestProcessor_Whitelist(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		check  func(t *testing.T, r *rule.ArtistRule)
	}{
		{
			name:   "song",
			action: ActionWhitelistSong,
			check: func(t *testing.T, r *rule.ArtistRule) {
				assert.Equal(t, []string{"A"}, r.WhitelistedSongs)
			},
		},
		{
			name:   "artist",
			action: ActionWhitelistArtist,
			check: func(t *testing.T, r *rule.ArtistRule) {
				assert.True(t, r.Whitelisted)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rules, _, player, _ := newTestProcessor()

			require.NoError(t, p.Execute(context.Background(), tt.action, current))
			tt.check(t, rules.artists["B"])
			assert.Equal(t, 0, player.skips, "whitelisting never skips")
			assert.Equal(t, 1, rules.persists)
		})
	}
}

func TestProcessor_Notify(t *testing.T) {
	p, _, settings, _, feedback := newTestProcessor()

	require.NoError(t, p.Execute(context.Background(), ActionNotify, current))
	assert.False(t, settings.settings.NotificationsEnabled)
	assert.Equal(t, 1, settings.persists)
	assert.Equal(t, "Notifications disabled", (*feedback)[0].Message)
}

func TestProcessor_TrackScopedWithoutTrack(t *testing.T) {
	p, rules, _, player, _ := newTestProcessor()

	err := p.Execute(context.Background(), ActionBlacklistSong, track.Null)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTrack)
	assert.Empty(t, rules.artists)
	assert.Equal(t, 0, player.skips)
}

func TestProcessor_Help(t *testing.T) {
	p, _, _, _, feedback := newTestProcessor()

	require.NoError(t, p.Execute(context.Background(), ActionHelp, track.Null))
	require.Len(t, *feedback, 1)
	assert.Contains(t, (*feedback)[0].Message, "t, toggle")
	assert.Contains(t, (*feedback)[0].Message, "Toggle notifications")
}
