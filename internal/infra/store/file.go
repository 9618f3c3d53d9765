// Package store provides the disk-backed rule and settings stores.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrCorrupt marks a file that could not be parsed after all read attempts.
var ErrCorrupt = errors.New("config file is corrupt")

// Options controls how store files are read.
type Options struct {
	ReadAttempts      uint          // Total read attempts before giving up
	ReadRetryInterval time.Duration // Pause between attempts
}

// DefaultOptions returns 3 attempts with a 1 second pause.
func DefaultOptions() Options {
	return Options{
		ReadAttempts:      3,
		ReadRetryInterval: time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReadAttempts == 0 {
		o.ReadAttempts = d.ReadAttempts
	}
	if o.ReadRetryInterval <= 0 {
		o.ReadRetryInterval = d.ReadRetryInterval
	}
	return o
}

// jsonFile is a JSON document stored at a single path.
type jsonFile struct {
	fs   afero.Fs
	path string
	opts Options
}

func newJSONFile(fs afero.Fs, path string, opts Options) *jsonFile {
	return &jsonFile{fs: fs, path: path, opts: opts.withDefaults()}
}

// ensure writes defaults when the file does not exist yet.
func (f *jsonFile) ensure(defaults any) error {
	_, err := f.fs.Stat(f.path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to stat %s", f.path)
	}

	zlog.Info().Msgf("store: creating %s with defaults", f.path)
	return f.write(defaults)
}

// write replaces the file content in one step (temp file + rename).
func (f *jsonFile) write(v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", f.path)
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := afero.TempFile(f.fs, dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = f.fs.Remove(tmpName)
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		_ = f.fs.Remove(tmpName)
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := f.fs.Chmod(tmpName, 0o644); err != nil {
		zlog.Debug().Msgf("store: chmod %s: %v", tmpName, err)
	}
	if err := f.fs.Rename(tmpName, f.path); err != nil {
		_ = f.fs.Remove(tmpName)
		return errors.Wrapf(err, "failed to replace %s", f.path)
	}
	return nil
}

// readJSON decodes the file over a fresh base(), retrying on read or parse
// failures. Keys missing from the file keep their base value. Another
// process may be rewriting the file in place.
func readJSON[T any](ctx context.Context, f *jsonFile, base func() T) (T, error) {
	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		out := base()
		data, err := afero.ReadFile(f.fs, f.path)
		if err != nil {
			return out, errors.Wrapf(err, "failed to read %s", f.path)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return out, errors.Wrapf(err, "failed to parse %s", f.path)
		}
		return out, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(f.opts.ReadRetryInterval)),
		backoff.WithMaxTries(f.opts.ReadAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			zlog.Warn().Msgf("store: read attempt %d/%d failed, retrying in %v: %v",
				attempt, f.opts.ReadAttempts, next, err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return v, errors.Wrap(err, "load cancelled")
		}
		return v, errors.Mark(
			errors.Wrapf(err, "giving up on %s after %d attempts", f.path, attempt),
			ErrCorrupt,
		)
	}
	return v, nil
}
