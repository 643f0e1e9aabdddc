package library_test

import (
	"errors"
	"fmt"
	"sync"

	"musicindex/internal/library"
)

type rowCall struct {
	op          string
	scope       library.Scope
	first, last int
}

// recorder captures every event and row notification delivered by an index.
type recorder struct {
	mu     sync.Mutex
	events []library.Event
	rows   []rowCall
}

func (r *recorder) HandleEvent(ev library.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) record(op string, scope library.Scope, first, last int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rowCall{op: op, scope: scope, first: first, last: last})
}

func (r *recorder) WillInsert(s library.Scope, first, last int) { r.record("willInsert", s, first, last) }
func (r *recorder) DidInsert(s library.Scope, first, last int)  { r.record("didInsert", s, first, last) }
func (r *recorder) WillRemove(s library.Scope, first, last int) { r.record("willRemove", s, first, last) }
func (r *recorder) DidRemove(s library.Scope, first, last int)  { r.record("didRemove", s, first, last) }
func (r *recorder) Changed(s library.Scope, first, last int)    { r.record("changed", s, first, last) }

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.rows = nil
}

func (r *recorder) count(t library.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) types() []library.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []library.EventType
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

// calls returns the row notifications of op whose scope has the given kind.
func (r *recorder) calls(op string, kind library.ScopeKind) []rowCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var calls []rowCall
	for _, c := range r.rows {
		if c.op == op && c.scope.Kind == kind {
			calls = append(calls, c)
		}
	}
	return calls
}

var errDiskFull = errors.New("disk full")

// memStore is an in-memory library.Store. failOn makes the n-th Apply fail.
type memStore struct {
	mu      sync.Mutex
	artists map[uint64]library.Artist
	albums  map[uint64]library.Album
	tracks  map[uint64]library.Track

	applies int
	failOn  int
}

func newMemStore() *memStore {
	return &memStore{
		artists: make(map[uint64]library.Artist),
		albums:  make(map[uint64]library.Album),
		tracks:  make(map[uint64]library.Track),
	}
}

func (s *memStore) Load() (*library.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &library.Snapshot{}
	for _, a := range s.artists {
		snap.Artists = append(snap.Artists, a)
	}
	for _, a := range s.albums {
		snap.Albums = append(snap.Albums, a)
	}
	for _, t := range s.tracks {
		snap.Tracks = append(snap.Tracks, t)
	}
	return snap, nil
}

func (s *memStore) Apply(cs *library.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applies++
	if s.failOn > 0 && s.applies == s.failOn {
		return errDiskFull
	}
	for _, id := range cs.RemovedTracks {
		delete(s.tracks, id)
	}
	for _, id := range cs.RemovedAlbums {
		delete(s.albums, id)
	}
	for _, id := range cs.RemovedArtists {
		delete(s.artists, id)
	}
	for _, a := range cs.Artists {
		s.artists[a.ID] = a
	}
	for _, a := range cs.Albums {
		s.albums[a.ID] = a
	}
	for _, t := range cs.Tracks {
		s.tracks[t.ID] = t
	}
	return nil
}

func track(title, artist, album, albumArtist string, number, disc int) library.Track {
	return library.Track{
		Title:       title,
		Artist:      artist,
		AlbumTitle:  album,
		AlbumArtist: albumArtist,
		TrackNumber: number,
		DiscNumber:  disc,
		ResourceURI: fmt.Sprintf("file:///music/%s/%s/%d-%d.ogg", albumArtist, album, disc, number),
		Rating:      number,
	}
}

// albumTracks builds tracks numbered first..last on disc 1.
func albumTracks(album, artist string, first, last int) []library.Track {
	var tracks []library.Track
	for n := first; n <= last; n++ {
		tracks = append(tracks, track(fmt.Sprintf("track%d", n), artist, album, artist, n, 1))
	}
	return tracks
}
