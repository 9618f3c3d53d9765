// Package track provides the Track domain value.
package track

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrNotReady is returned by players that cannot report a current track yet.
var ErrNotReady = errors.New("player not ready")

// Track identifies what the player is playing right now.
// Two tracks are the same track only when all fields are equal.
type Track struct {
	Title  string  // Track title
	Artist string  // Main artist name
	Score  float64 // Normalized score in [0,1]
}

// Null is the placeholder for "no track observed yet".
var Null = Track{}

// New creates a track, clamping the score into [0,1].
func New(title, artist string, score float64) Track {
	switch {
	case score < 0:
		score = 0
	case score > 1:
		score = 1
	}
	return Track{Title: title, Artist: artist, Score: score}
}

// IsNull reports whether t is the null track.
func (t Track) IsNull() bool {
	return t == Null
}

// String returns a short human readable form used in logs.
func (t Track) String() string {
	if t.IsNull() {
		return "<none>"
	}
	return fmt.Sprintf("%s - %s (%.2f)", t.Artist, t.Title, t.Score)
}
