package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/autoskip/internal/domain/rule"
	"github.com/osa030/autoskip/internal/domain/track"
)

type fakeSkipper struct {
	calls int
	err   error
}

func (f *fakeSkipper) Skip(ctx context.Context) error {
	f.calls++
	return f.err
}

func settingsWithThreshold(threshold float64) rule.Settings {
	return rule.Settings{SkipScoreThreshold: threshold, AutoSkipEnabled: true}
}

func TestDecide(t *testing.T) {
	song := track.Track{Title: "A", Artist: "B", Score: 0.5}
	lowSong := track.Track{Title: "A", Artist: "B", Score: 0.05}

	tests := []struct {
		name        string
		track       track.Track
		rule        *rule.ArtistRule
		wantSkip    bool
		wantMatches []Match
	}{
		{
			name:     "absent artist is never skipped",
			track:    lowSong,
			rule:     nil,
			wantSkip: false,
		},
		{
			name:     "default rule above threshold",
			track:    song,
			rule:     rule.NewArtistRule(),
			wantSkip: false,
		},
		{
			name:        "default rule below threshold",
			track:       lowSong,
			rule:        rule.NewArtistRule(),
			wantSkip:    true,
			wantMatches: []Match{MatchBelowThreshold},
		},
		{
			name:        "blacklisted song",
			track:       song,
			rule:        &rule.ArtistRule{BlacklistedSongs: []string{"A"}},
			wantSkip:    true,
			wantMatches: []Match{MatchSongBlacklisted},
		},
		{
			name:        "whitelisted song overrides blacklisted song",
			track:       song,
			rule:        &rule.ArtistRule{BlacklistedSongs: []string{"A"}, WhitelistedSongs: []string{"A"}},
			wantSkip:    false,
			wantMatches: []Match{MatchSongBlacklisted, MatchSongWhitelisted},
		},
		{
			name:        "blacklisted artist overrides whitelisted song",
			track:       song,
			rule:        &rule.ArtistRule{Blacklisted: true, WhitelistedSongs: []string{"A"}},
			wantSkip:    true,
			wantMatches: []Match{MatchSongWhitelisted, MatchArtistBlacklisted},
		},
		{
			name:        "whitelisted artist overrides blacklisted artist",
			track:       song,
			rule:        &rule.ArtistRule{Blacklisted: true, Whitelisted: true},
			wantSkip:    false,
			wantMatches: []Match{MatchArtistBlacklisted, MatchArtistWhitelisted},
		},
		{
			name:        "threshold overrides whitelisted artist",
			track:       lowSong,
			rule:        &rule.ArtistRule{Blacklisted: true, Whitelisted: true},
			wantSkip:    true,
			wantMatches: []Match{MatchArtistBlacklisted, MatchArtistWhitelisted, MatchBelowThreshold},
		},
		{
			name:        "threshold overrides whitelisted song",
			track:       lowSong,
			rule:        &rule.ArtistRule{WhitelistedSongs: []string{"A"}},
			wantSkip:    true,
			wantMatches: []Match{MatchSongWhitelisted, MatchBelowThreshold},
		},
		{
			name:     "other title in lists",
			track:    song,
			rule:     &rule.ArtistRule{BlacklistedSongs: []string{"Z"}},
			wantSkip: false,
		},
		{
			name:     "score equal to threshold is kept",
			track:    track.Track{Title: "A", Artist: "B", Score: 0.1},
			rule:     rule.NewArtistRule(),
			wantSkip: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.track, tt.rule, settingsWithThreshold(0.1))

			assert.Equal(t, tt.wantSkip, d.ShouldSkip)
			assert.Equal(t, tt.wantMatches, d.Matches)
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	trk := track.Track{Title: "A", Artist: "B", Score: 0.05}
	r := &rule.ArtistRule{Blacklisted: true, WhitelistedSongs: []string{"A"}}
	s := settingsWithThreshold(0.1)

	first := Decide(trk, r, s)
	second := Decide(trk, r, s)

	assert.Equal(t, first, second)
}

func TestDecision_Has(t *testing.T) {
	d := Decision{Matches: []Match{MatchSongWhitelisted}}
	assert.True(t, d.Has(MatchSongWhitelisted))
	assert.False(t, d.Has(MatchArtistBlacklisted))
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name      string
		autoSkip  bool
		skip      bool
		skipErr   error
		wantCalls int
		wantSkip  bool
	}{
		{name: "auto skip on and skip", autoSkip: true, skip: true, wantCalls: 1, wantSkip: true},
		{name: "auto skip off", autoSkip: false, skip: true, wantCalls: 0, wantSkip: false},
		{name: "nothing to skip", autoSkip: true, skip: false, wantCalls: 0, wantSkip: false},
		{name: "player error is swallowed", autoSkip: true, skip: true, skipErr: errors.New("dbus gone"), wantCalls: 1, wantSkip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skipper := &fakeSkipper{err: tt.skipErr}
			settings := rule.Settings{AutoSkipEnabled: tt.autoSkip}

			got := Execute(context.Background(), Decision{ShouldSkip: tt.skip}, settings, skipper)

			assert.Equal(t, tt.wantSkip, got)
			assert.Equal(t, tt.wantCalls, skipper.calls)
		})
	}
}
