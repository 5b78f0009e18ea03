package memoryengine

import (
	"errors"
	"strings"

	"github.com/AntonStoeckl/shelfstock/stock"
)

// ErrEmptySnapshotFile is returned by WithSnapshotFile for a blank path.
var ErrEmptySnapshotFile = errors.New("empty snapshot file supplied")

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithSnapshotFile persists the committed state to path and loads it from there when the store is created.
func WithSnapshotFile(path string) Option {
	return func(s *Store) error {
		if strings.TrimSpace(path) == "" {
			return ErrEmptySnapshotFile
		}

		s.snapshotFile = path

		return nil
	}
}

// WithLogger sets the logger for commits and snapshot writes.
func WithLogger(logger stock.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger. It takes precedence over WithLogger.
func WithContextualLogger(logger stock.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}
