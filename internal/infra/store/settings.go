package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"github.com/osa030/autoskip/internal/domain/rule"
)

// SettingsStore holds the global settings backed by settings.json.
// It does no locking; callers serialize access.
type SettingsStore struct {
	file     *jsonFile
	settings rule.Settings
}

// NewSettingsStore creates a settings store for the file at path.
func NewSettingsStore(fs afero.Fs, path string, opts Options) *SettingsStore {
	return &SettingsStore{
		file:     newJSONFile(fs, path, opts),
		settings: rule.DefaultSettings(),
	}
}

// Path returns the backing file path.
func (s *SettingsStore) Path() string {
	return s.file.path
}

// Load reads the backing file, writing the defaults first when absent.
// Keys missing from the file take their default values.
func (s *SettingsStore) Load(ctx context.Context) error {
	if err := s.file.ensure(rule.DefaultSettings()); err != nil {
		return errors.Wrap(err, "failed to initialize settings file")
	}

	loaded, err := readJSON(ctx, s.file, rule.DefaultSettings)
	if err != nil {
		return err
	}

	if err := validator.New().Struct(loaded); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid settings"), ErrCorrupt)
	}

	s.settings = loaded
	return nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() rule.Settings {
	return s.settings
}

// Update applies fn to the in-memory settings.
func (s *SettingsStore) Update(fn func(*rule.Settings)) {
	fn(&s.settings)
}

// Persist rewrites the backing file.
func (s *SettingsStore) Persist() error {
	if err := s.file.write(s.settings); err != nil {
		return errors.Wrap(err, "failed to persist settings")
	}
	return nil
}
