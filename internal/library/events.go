package library

import "sync"

// EventType represents the kind of entity change.
type EventType int

const (
	EventTrackAdded EventType = iota
	EventTrackModified
	EventTrackRemoved
	EventAlbumAdded
	EventAlbumModified
	EventAlbumRemoved
	EventArtistAdded
	EventArtistModified
	EventArtistRemoved
	// EventNewTrackFile asks for the stored record to be verified against its resource.
	EventNewTrackFile
)

func (t EventType) String() string {
	switch t {
	case EventTrackAdded:
		return "trackAdded"
	case EventTrackModified:
		return "trackModified"
	case EventTrackRemoved:
		return "trackRemoved"
	case EventAlbumAdded:
		return "albumAdded"
	case EventAlbumModified:
		return "albumModified"
	case EventAlbumRemoved:
		return "albumRemoved"
	case EventArtistAdded:
		return "artistAdded"
	case EventArtistModified:
		return "artistModified"
	case EventArtistRemoved:
		return "artistRemoved"
	case EventNewTrackFile:
		return "newTrackFile"
	}
	return "unknown"
}

// Event is an entity-level change notification. Only the field matching the
// event type is set.
type Event struct {
	Type   EventType
	Track  Track
	Album  Album
	Artist Artist
}

// Listener receives entity-level events.
type Listener interface {
	HandleEvent(ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event)

func (f ListenerFunc) HandleEvent(ev Event) {
	f(ev)
}

// ScopeKind selects which projection of the index a row event applies to.
type ScopeKind int

const (
	// ScopeAlbums is the list of all albums in AllAlbums order.
	ScopeAlbums ScopeKind = iota
	// ScopeAlbumTracks is the rows of one album in AlbumTracks order.
	ScopeAlbumTracks
	// ScopeArtists is the list of all artists in AllArtists order.
	ScopeArtists
)

// Scope is the parent of a row range.
type Scope struct {
	Kind    ScopeKind
	AlbumID uint64
}

// AlbumScope returns the scope of the rows of one album.
func AlbumScope(albumID uint64) Scope {
	return Scope{Kind: ScopeAlbumTracks, AlbumID: albumID}
}

var (
	albumsScope  = Scope{Kind: ScopeAlbums}
	artistsScope = Scope{Kind: ScopeArtists}
)

// ModelObserver receives row-level notifications. Structural changes arrive
// as Will/Did pairs framing one contiguous row range; Changed covers in-place
// updates that keep row count and position.
type ModelObserver interface {
	WillInsert(scope Scope, first, last int)
	DidInsert(scope Scope, first, last int)
	WillRemove(scope Scope, first, last int)
	DidRemove(scope Scope, first, last int)
	Changed(scope Scope, first, last int)
}

type rowOp int

const (
	opEvent rowOp = iota
	opWillInsert
	opDidInsert
	opWillRemove
	opDidRemove
	opChanged
)

type notification struct {
	op          rowOp
	scope       Scope
	first, last int
	event       Event
}

// bus queues notifications while the index mutates and delivers them once the
// state lock has been released.
type bus struct {
	mu        sync.Mutex
	listeners []Listener
	observers []ModelObserver

	pending []notification
}

func (b *bus) subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *bus) observe(o ModelObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

func (b *bus) emit(ev Event) {
	b.pending = append(b.pending, notification{op: opEvent, event: ev})
}

func (b *bus) rows(op rowOp, scope Scope, first, last int) {
	b.pending = append(b.pending, notification{op: op, scope: scope, first: first, last: last})
}

func (b *bus) insertRows(scope Scope, first, last int) {
	b.rows(opWillInsert, scope, first, last)
	b.rows(opDidInsert, scope, first, last)
}

func (b *bus) removeRows(scope Scope, first, last int) {
	b.rows(opWillRemove, scope, first, last)
	b.rows(opDidRemove, scope, first, last)
}

func (b *bus) changed(scope Scope, first, last int) {
	b.rows(opChanged, scope, first, last)
}

func (b *bus) mark() int {
	return len(b.pending)
}

func (b *bus) truncate(mark int) {
	b.pending = b.pending[:mark]
}

// flush delivers every queued notification in order.
func (b *bus) flush() {
	pending := b.pending
	b.pending = nil
	if len(pending) == 0 {
		return
	}

	b.mu.Lock()
	listeners := append([]Listener(nil), b.listeners...)
	observers := append([]ModelObserver(nil), b.observers...)
	b.mu.Unlock()

	for _, n := range pending {
		if n.op == opEvent {
			for _, l := range listeners {
				l.HandleEvent(n.event)
			}
			continue
		}
		for _, o := range observers {
			switch n.op {
			case opWillInsert:
				o.WillInsert(n.scope, n.first, n.last)
			case opDidInsert:
				o.DidInsert(n.scope, n.first, n.last)
			case opWillRemove:
				o.WillRemove(n.scope, n.first, n.last)
			case opDidRemove:
				o.DidRemove(n.scope, n.first, n.last)
			case opChanged:
				o.Changed(n.scope, n.first, n.last)
			}
		}
	}
}
