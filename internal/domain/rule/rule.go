// Package rule provides the per-artist skip rules and the global settings.
package rule

import "slices"

// ArtistRule holds the allow/deny configuration of a single artist.
// Song lists behave as sets; insertion order is kept so files stay stable.
type ArtistRule struct {
	Blacklisted      bool     `json:"blacklisted"`
	Whitelisted      bool     `json:"whitelisted"`
	BlacklistedSongs []string `json:"blacklisted_songs"`
	WhitelistedSongs []string `json:"whitelisted_songs"`
}

// NewArtistRule returns the default rule.
func NewArtistRule() *ArtistRule {
	return &ArtistRule{
		BlacklistedSongs: []string{},
		WhitelistedSongs: []string{},
	}
}

// IsDefault reports whether r carries no configuration at all.
func (r *ArtistRule) IsDefault() bool {
	return !r.Blacklisted && !r.Whitelisted &&
		len(r.BlacklistedSongs) == 0 && len(r.WhitelistedSongs) == 0
}

// IsSongBlacklisted reports whether title is in the blacklisted songs.
func (r *ArtistRule) IsSongBlacklisted(title string) bool {
	return slices.Contains(r.BlacklistedSongs, title)
}

// IsSongWhitelisted reports whether title is in the whitelisted songs.
func (r *ArtistRule) IsSongWhitelisted(title string) bool {
	return slices.Contains(r.WhitelistedSongs, title)
}

// ToggleBlacklistedSong adds or removes title and returns the new membership.
func (r *ArtistRule) ToggleBlacklistedSong(title string) bool {
	var added bool
	r.BlacklistedSongs, added = toggle(r.BlacklistedSongs, title)
	return added
}

// ToggleWhitelistedSong adds or removes title and returns the new membership.
func (r *ArtistRule) ToggleWhitelistedSong(title string) bool {
	var added bool
	r.WhitelistedSongs, added = toggle(r.WhitelistedSongs, title)
	return added
}

// ToggleBlacklisted flips the artist blacklist flag and returns the new value.
func (r *ArtistRule) ToggleBlacklisted() bool {
	r.Blacklisted = !r.Blacklisted
	return r.Blacklisted
}

// ToggleWhitelisted flips the artist whitelist flag and returns the new value.
func (r *ArtistRule) ToggleWhitelisted() bool {
	r.Whitelisted = !r.Whitelisted
	return r.Whitelisted
}

func toggle(songs []string, title string) ([]string, bool) {
	if i := slices.Index(songs, title); i >= 0 {
		return slices.Delete(songs, i, i+1), false
	}
	return append(songs, title), true
}

// Settings represents the global skip settings.
type Settings struct {
	SkipScoreThreshold   float64 `json:"skipSongsUnder" validate:"gte=0,lte=1"`
	AutoSkipEnabled      bool    `json:"autoSkip"`
	NotificationsEnabled bool    `json:"sendNotifications"`
}

// DefaultSettings returns the settings written on first run.
func DefaultSettings() Settings {
	return Settings{
		SkipScoreThreshold:   0.1,
		AutoSkipEnabled:      true,
		NotificationsEnabled: true,
	}
}
