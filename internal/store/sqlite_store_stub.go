//go:build !cgo

package store

import "musicindex/internal/library"

type SQLiteStore struct{}

func (s *SQLiteStore) Initialize(path string) error { return ErrNotAvailable }

func (s *SQLiteStore) Close() error { return nil }

func (s *SQLiteStore) Clear() error { return ErrNotAvailable }

func (s *SQLiteStore) Load() (*library.Snapshot, error) { return nil, ErrNotAvailable }

func (s *SQLiteStore) Apply(cs *library.Changeset) error { return ErrNotAvailable }

func (s *SQLiteStore) Count() (int, error) { return 0, ErrNotAvailable }

func (s *SQLiteStore) ResourceURIs() ([]string, error) { return nil, ErrNotAvailable }

func (s *SQLiteStore) Search(input string) ([]library.Track, error) { return nil, ErrNotAvailable }
