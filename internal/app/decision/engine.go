// Package decision decides whether the current track should be skipped.
package decision

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autoskip/internal/domain/rule"
	"github.com/osa030/autoskip/internal/domain/track"
)

// Match names a rule whose condition held for a track.
type Match string

const (
	MatchSongBlacklisted   Match = "song_blacklisted"
	MatchSongWhitelisted   Match = "song_whitelisted"
	MatchArtistBlacklisted Match = "artist_blacklisted"
	MatchArtistWhitelisted Match = "artist_whitelisted"
	MatchBelowThreshold    Match = "below_threshold"
)

// Decision is the outcome of evaluating the rules for one track.
type Decision struct {
	ShouldSkip bool
	Matches    []Match // Rules that fired, in evaluation order
}

// Has reports whether m fired.
func (d Decision) Has(m Match) bool {
	for _, got := range d.Matches {
		if got == m {
			return true
		}
	}
	return false
}

// step is one entry of the rule table. When applies holds, the running
// skip flag is overwritten with skip.
type step struct {
	match   Match
	skip    bool
	applies func(t track.Track, r *rule.ArtistRule, s rule.Settings) bool
}

// steps run in this exact order; later steps override earlier ones.
var steps = []step{
	{
		match: MatchSongBlacklisted,
		skip:  true,
		applies: func(t track.Track, r *rule.ArtistRule, _ rule.Settings) bool {
			return r.IsSongBlacklisted(t.Title)
		},
	},
	{
		match: MatchSongWhitelisted,
		skip:  false,
		applies: func(t track.Track, r *rule.ArtistRule, _ rule.Settings) bool {
			return r.IsSongWhitelisted(t.Title)
		},
	},
	{
		match: MatchArtistBlacklisted,
		skip:  true,
		applies: func(_ track.Track, r *rule.ArtistRule, _ rule.Settings) bool {
			return r.Blacklisted
		},
	},
	{
		match: MatchArtistWhitelisted,
		skip:  false,
		applies: func(_ track.Track, r *rule.ArtistRule, _ rule.Settings) bool {
			return r.Whitelisted
		},
	},
	{
		match: MatchBelowThreshold,
		skip:  true,
		applies: func(t track.Track, _ *rule.ArtistRule, s rule.Settings) bool {
			return t.Score < s.SkipScoreThreshold
		},
	},
}

// Decide evaluates the rules for t. A nil artistRule means the artist has
// no entry in the rule store; such tracks are never skipped, not even on
// score.
func Decide(t track.Track, artistRule *rule.ArtistRule, settings rule.Settings) Decision {
	if artistRule == nil {
		return Decision{}
	}

	var d Decision
	for _, st := range steps {
		if st.applies(t, artistRule, settings) {
			d.ShouldSkip = st.skip
			d.Matches = append(d.Matches, st.match)
		}
	}
	return d
}

// Skipper advances the player to the next track.
type Skipper interface {
	Skip(ctx context.Context) error
}

// Execute skips when auto-skip is on and d says so. Skip errors are
// dropped. It reports whether a skip was issued.
func Execute(ctx context.Context, d Decision, settings rule.Settings, skipper Skipper) bool {
	if !settings.AutoSkipEnabled || !d.ShouldSkip {
		return false
	}
	if err := skipper.Skip(ctx); err != nil {
		zlog.Debug().Msgf("decision: skip failed (ignored): %v", err)
	}
	return true
}
