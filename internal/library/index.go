package library

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by write operations on a closed index.
	ErrClosed = errors.New("library index is closed")
	// ErrMissingIdentity marks a record without a title or resource URI.
	ErrMissingIdentity = errors.New("track record is missing identity fields")
)

// Options configures an Index.
type Options struct {
	// Store persists the index. A nil store keeps the index in memory only.
	Store Store
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Rollup decides an album's artist when its tracks disagree.
	// Defaults to KeepProvided.
	Rollup RollupPolicy
}

type albumState struct {
	Album

	rows []uint64
	// ref is the artist name this album currently holds a reference on.
	ref string
}

func (a *albumState) rowOf(trackID uint64) int {
	for i, id := range a.rows {
		if id == trackID {
			return i
		}
	}
	return -1
}

type artistState struct {
	Artist

	refs int
}

// Index is the music library index. It owns the track, album and artist
// model, keeps it persisted through its Store and reports every change to
// subscribed listeners and observers.
type Index struct {
	// writeMu serializes ingestion calls including event delivery.
	writeMu sync.Mutex
	// mu guards the model below.
	mu sync.RWMutex

	store  Store
	log    *zap.Logger
	rollup RollupPolicy
	bus    bus
	closed bool

	tracks     map[uint64]*Track
	byKey      map[TrackKey]uint64
	byURI      map[string]uint64
	albums     map[uint64]*albumState
	albumByKey map[AlbumKey]uint64
	artists    map[string]*artistState

	albumOrder  []uint64
	artistOrder []string

	nextTrackID  uint64
	nextAlbumID  uint64
	nextArtistID uint64

	changes *changes
}

// Open creates an index and loads the current content of the store.
func Open(opts Options) (*Index, error) {
	ix := &Index{
		store:  opts.Store,
		log:    opts.Logger,
		rollup: opts.Rollup,
	}
	if ix.log == nil {
		ix.log = zap.NewNop()
	}
	if ix.rollup == nil {
		ix.rollup = KeepProvided
	}

	if err := ix.reload(); err != nil {
		return nil, err
	}

	ix.log.Info("library index opened",
		zap.Int("tracks", len(ix.tracks)),
		zap.Int("albums", len(ix.albums)),
		zap.Int("artists", len(ix.artists)))
	return ix, nil
}

// Subscribe registers a listener for entity-level events.
func (ix *Index) Subscribe(l Listener) {
	ix.bus.subscribe(l)
}

// Observe registers an observer for row-level notifications.
func (ix *Index) Observe(o ModelObserver) {
	ix.bus.observe(o)
}

// Close stops accepting writes. The store is owned by the caller.
func (ix *Index) Close() error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.closed = true
	return nil
}

func (ix *Index) reset() {
	ix.tracks = make(map[uint64]*Track)
	ix.byKey = make(map[TrackKey]uint64)
	ix.byURI = make(map[string]uint64)
	ix.albums = make(map[uint64]*albumState)
	ix.albumByKey = make(map[AlbumKey]uint64)
	ix.artists = make(map[string]*artistState)
	ix.albumOrder = nil
	ix.artistOrder = nil
	ix.nextTrackID = 1
	ix.nextAlbumID = 1
	ix.nextArtistID = 1
	ix.changes = newChanges()
}

// reload rebuilds the model from the store without emitting events.
func (ix *Index) reload() error {
	ix.reset()
	if ix.store == nil {
		return nil
	}

	snap, err := ix.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	knownArtists := make(map[string]Artist, len(snap.Artists))
	for _, a := range snap.Artists {
		knownArtists[a.Name] = a
		ix.nextArtistID = max(ix.nextArtistID, a.ID+1)
	}

	for _, a := range snap.Albums {
		state := &albumState{Album: a}
		ix.albums[a.ID] = state
		ix.albumByKey[AlbumKey{Title: a.Title, Artist: a.AlbumArtist}] = a.ID
		ix.nextAlbumID = max(ix.nextAlbumID, a.ID+1)
	}

	for _, stored := range snap.Tracks {
		t := stored.clone()
		album, ok := ix.albums[t.AlbumID]
		if !ok {
			ix.log.Warn("dropping stored track without album",
				zap.Uint64("track", t.ID), zap.Uint64("album", t.AlbumID))
			continue
		}
		ix.tracks[t.ID] = &t
		ix.byKey[t.Key()] = t.ID
		ix.byURI[t.ResourceURI] = t.ID
		album.rows = append(album.rows, t.ID)
		ix.nextTrackID = max(ix.nextTrackID, t.ID+1)
	}

	// Artist ids survive a reload; names no longer referenced are dropped.
	restore := func(name string) *artistState {
		if name == "" {
			return nil
		}
		a, ok := ix.artists[name]
		if !ok {
			known, found := knownArtists[name]
			if !found {
				known = Artist{ID: ix.nextArtistID, Name: name}
				ix.nextArtistID++
			}
			known.AlbumsCount = 0
			a = &artistState{Artist: known}
			ix.artists[name] = a
		}
		a.refs++
		return a
	}

	for id, album := range ix.albums {
		if len(album.rows) == 0 {
			delete(ix.albums, id)
			delete(ix.albumByKey, AlbumKey{Title: album.Title, Artist: album.AlbumArtist})
			continue
		}
		sort.SliceStable(album.rows, func(i, j int) bool {
			a, b := ix.tracks[album.rows[i]], ix.tracks[album.rows[j]]
			if rowLess(a, b) || rowLess(b, a) {
				return rowLess(a, b)
			}
			return a.ID < b.ID
		})
		album.Album = ix.computeAggregates(album)
		if a := restore(album.Artist); a != nil {
			a.AlbumsCount++
			album.ref = album.Artist
		}
		ix.albumOrder = append(ix.albumOrder, id)
	}
	for _, t := range ix.tracks {
		restore(t.Artist)
	}
	for name := range ix.artists {
		ix.artistOrder = append(ix.artistOrder, name)
	}

	sort.Slice(ix.albumOrder, func(i, j int) bool {
		return ix.albumLess(ix.albums[ix.albumOrder[i]], ix.albums[ix.albumOrder[j]])
	})
	sort.Slice(ix.artistOrder, func(i, j int) bool {
		return artistLess(ix.artistOrder[i], ix.artistOrder[j])
	})
	return nil
}

// run applies fn to each record of a batch. Each record is committed on its
// own; a failing commit discards that record's notifications, restores the
// model from the store and stops the batch.
func (ix *Index) run(op string, n int, fn func(i int)) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return ErrClosed
	}

	var err error
	for i := 0; i < n; i++ {
		mark := ix.bus.mark()
		fn(i)
		if cerr := ix.commit(); cerr != nil {
			ix.bus.truncate(mark)
			err = fmt.Errorf("%s: record %d: %w", op, i, cerr)
			ix.log.Error("commit failed", zap.String("op", op), zap.Int("record", i), zap.Error(cerr))
			if rerr := ix.reload(); rerr != nil {
				err = errors.Join(err, rerr)
			}
			break
		}
	}
	ix.mu.Unlock()

	ix.bus.flush()
	return err
}

func (ix *Index) commit() error {
	cs := ix.changes.build(ix)
	ix.changes = newChanges()
	if ix.store == nil || cs.IsEmpty() {
		return nil
	}
	return ix.store.Apply(cs)
}

func (ix *Index) albumLess(a, b *albumState) bool {
	if ka, kb := sortKey(a.Title), sortKey(b.Title); ka != kb {
		return ka < kb
	}
	if ka, kb := sortKey(a.AlbumArtist), sortKey(b.AlbumArtist); ka != kb {
		return ka < kb
	}
	return a.ID < b.ID
}

func artistLess(a, b string) bool {
	if ka, kb := sortKey(a), sortKey(b); ka != kb {
		return ka < kb
	}
	return a < b
}

func (ix *Index) albumRow(id uint64) int {
	album := ix.albums[id]
	row := sort.Search(len(ix.albumOrder), func(i int) bool {
		return !ix.albumLess(ix.albums[ix.albumOrder[i]], album)
	})
	if row < len(ix.albumOrder) && ix.albumOrder[row] == id {
		return row
	}
	return -1
}

func (ix *Index) artistRow(name string) int {
	row := sort.Search(len(ix.artistOrder), func(i int) bool {
		return !artistLess(ix.artistOrder[i], name)
	})
	if row < len(ix.artistOrder) && ix.artistOrder[row] == name {
		return row
	}
	return -1
}

// retainArtist takes a reference on name, creating the artist on first use.
// albumRef marks the reference held by an album through its rollup artist.
func (ix *Index) retainArtist(name string, albumRef bool) {
	if name == "" {
		return
	}
	a, ok := ix.artists[name]
	if ok {
		a.refs++
		if albumRef {
			a.AlbumsCount++
			ix.artistModified(a)
		}
		return
	}

	a = &artistState{Artist: Artist{ID: ix.nextArtistID, Name: name}, refs: 1}
	ix.nextArtistID++
	if albumRef {
		a.AlbumsCount = 1
	}
	ix.artists[name] = a

	row := sort.Search(len(ix.artistOrder), func(i int) bool {
		return artistLess(name, ix.artistOrder[i])
	})
	ix.artistOrder = insertAt(ix.artistOrder, row, name)
	ix.bus.insertRows(artistsScope, row, row)
	ix.bus.emit(Event{Type: EventArtistAdded, Artist: a.Artist})
	ix.changes.putArtist(a.Artist)
}

// releaseArtist drops a reference on name and removes the artist once nothing
// refers to it anymore.
func (ix *Index) releaseArtist(name string, albumRef bool) {
	a, ok := ix.artists[name]
	if !ok {
		return
	}
	a.refs--
	if albumRef {
		a.AlbumsCount--
	}
	if a.refs > 0 {
		if albumRef {
			ix.artistModified(a)
		}
		return
	}

	row := ix.artistRow(name)
	delete(ix.artists, name)
	if row >= 0 {
		ix.artistOrder = removeAt(ix.artistOrder, row)
		ix.bus.removeRows(artistsScope, row, row)
	}
	ix.bus.emit(Event{Type: EventArtistRemoved, Artist: a.Artist})
	ix.changes.dropArtist(a.Artist)
}

func (ix *Index) artistModified(a *artistState) {
	if row := ix.artistRow(a.Name); row >= 0 {
		ix.bus.changed(artistsScope, row, row)
	}
	ix.bus.emit(Event{Type: EventArtistModified, Artist: a.Artist})
	ix.changes.putArtist(a.Artist)
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt[T any](s []T, i int) []T {
	return append(s[:i], s[i+1:]...)
}
