package library

import "sort"

// Store is the persistence backend of an Index.
type Store interface {
	// Load returns every stored entity.
	Load() (*Snapshot, error)

	// Apply writes one committed change set atomically.
	Apply(cs *Changeset) error
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Artists []Artist
	Albums  []Album
	Tracks  []Track
}

// Changeset holds the rows written or deleted by one ingestion record.
type Changeset struct {
	Artists []Artist
	Albums  []Album
	Tracks  []Track

	RemovedArtists []uint64
	RemovedAlbums  []uint64
	RemovedTracks  []uint64
}

// IsEmpty reports whether the change set carries no work.
func (cs *Changeset) IsEmpty() bool {
	return len(cs.Artists) == 0 && len(cs.Albums) == 0 && len(cs.Tracks) == 0 &&
		len(cs.RemovedArtists) == 0 && len(cs.RemovedAlbums) == 0 && len(cs.RemovedTracks) == 0
}

// changes records which entities were touched; their final state is read at
// commit time.
type changes struct {
	tracks  map[uint64]bool
	albums  map[uint64]bool
	artists map[string]uint64

	removedTracks  map[uint64]bool
	removedAlbums  map[uint64]bool
	removedArtists map[uint64]bool
}

func newChanges() *changes {
	return &changes{
		tracks:         make(map[uint64]bool),
		albums:         make(map[uint64]bool),
		artists:        make(map[string]uint64),
		removedTracks:  make(map[uint64]bool),
		removedAlbums:  make(map[uint64]bool),
		removedArtists: make(map[uint64]bool),
	}
}

func (c *changes) putTrack(id uint64)  { c.tracks[id] = true }
func (c *changes) putAlbum(id uint64)  { c.albums[id] = true }
func (c *changes) dropTrack(id uint64) { c.removedTracks[id] = true }
func (c *changes) dropAlbum(id uint64) { c.removedAlbums[id] = true }

func (c *changes) putArtist(a Artist) {
	c.artists[a.Name] = a.ID
}

func (c *changes) dropArtist(a Artist) {
	c.removedArtists[a.ID] = true
}

// build materializes the change set from the current index state.
func (c *changes) build(ix *Index) *Changeset {
	cs := &Changeset{}
	for id := range c.removedTracks {
		cs.RemovedTracks = append(cs.RemovedTracks, id)
	}
	for id := range c.removedAlbums {
		cs.RemovedAlbums = append(cs.RemovedAlbums, id)
	}
	for id := range c.removedArtists {
		cs.RemovedArtists = append(cs.RemovedArtists, id)
	}
	for id := range c.tracks {
		if t, ok := ix.tracks[id]; ok {
			cs.Tracks = append(cs.Tracks, ix.decorate(*t))
		}
	}
	for id := range c.albums {
		if a, ok := ix.albums[id]; ok {
			cs.Albums = append(cs.Albums, a.Album)
		}
	}
	for name, id := range c.artists {
		if a, ok := ix.artists[name]; ok && a.ID == id {
			cs.Artists = append(cs.Artists, a.Artist)
		}
	}

	sortIDs(cs.RemovedTracks)
	sortIDs(cs.RemovedAlbums)
	sortIDs(cs.RemovedArtists)
	sort.Slice(cs.Tracks, func(i, j int) bool { return cs.Tracks[i].ID < cs.Tracks[j].ID })
	sort.Slice(cs.Albums, func(i, j int) bool { return cs.Albums[i].ID < cs.Albums[j].ID })
	sort.Slice(cs.Artists, func(i, j int) bool { return cs.Artists[i].ID < cs.Artists[j].ID })
	return cs
}

func sortIDs(ids []uint64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
