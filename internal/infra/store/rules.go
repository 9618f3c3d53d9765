package store

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/osa030/autoskip/internal/domain/rule"
)

// RuleStore is the artist name to ArtistRule map backed by artists.json.
// It does no locking; callers serialize access.
type RuleStore struct {
	file    *jsonFile
	artists map[string]*rule.ArtistRule
}

// NewRuleStore creates a rule store for the file at path.
func NewRuleStore(fs afero.Fs, path string, opts Options) *RuleStore {
	return &RuleStore{
		file:    newJSONFile(fs, path, opts),
		artists: make(map[string]*rule.ArtistRule),
	}
}

// Path returns the backing file path.
func (s *RuleStore) Path() string {
	return s.file.path
}

// Load reads the backing file, creating it empty when absent.
func (s *RuleStore) Load(ctx context.Context) error {
	if err := s.file.ensure(map[string]*rule.ArtistRule{}); err != nil {
		return errors.Wrap(err, "failed to initialize artists file")
	}

	loaded, err := readJSON(ctx, s.file, func() map[string]*rule.ArtistRule { return nil })
	if err != nil {
		return err
	}

	artists := make(map[string]*rule.ArtistRule, len(loaded))
	for name, r := range loaded {
		if r == nil {
			r = rule.NewArtistRule()
		}
		if r.BlacklistedSongs == nil {
			r.BlacklistedSongs = []string{}
		}
		if r.WhitelistedSongs == nil {
			r.WhitelistedSongs = []string{}
		}
		artists[name] = r
	}
	s.artists = artists
	return nil
}

// Get returns the rule for artist without creating one.
func (s *RuleStore) Get(artist string) (*rule.ArtistRule, bool) {
	r, ok := s.artists[artist]
	return r, ok
}

// GetOrCreate returns the rule for artist, inserting a default one if needed.
func (s *RuleStore) GetOrCreate(artist string) *rule.ArtistRule {
	if r, ok := s.artists[artist]; ok {
		return r
	}
	r := rule.NewArtistRule()
	s.artists[artist] = r
	return r
}

// Artists returns the known artist names in sorted order.
func (s *RuleStore) Artists() []string {
	names := make([]string, 0, len(s.artists))
	for name := range s.artists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Persist rewrites the backing file, leaving out default rules.
func (s *RuleStore) Persist() error {
	out := make(map[string]*rule.ArtistRule, len(s.artists))
	for name, r := range s.artists {
		if r.IsDefault() {
			continue
		}
		out[name] = r
	}
	if err := s.file.write(out); err != nil {
		return errors.Wrap(err, "failed to persist artist rules")
	}
	return nil
}
