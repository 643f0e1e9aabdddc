package library

import "slices"

// RollupPolicy returns the artist of an album whose tracks name more than one
// artist. provided is the album-artist value the tracks were tagged with and
// candidates are the distinct artists they name, sorted.
type RollupPolicy func(provided string, candidates []string) string

// KeepProvided retains the album-artist value supplied by the caller.
func KeepProvided(provided string, _ []string) string {
	return provided
}

// Sentinel substitutes name for albums whose tracks disagree and that were
// not given an album artist.
func Sentinel(name string) RollupPolicy {
	return func(provided string, _ []string) string {
		if provided != "" {
			return provided
		}
		return name
	}
}

// computeAggregates derives the album-level values from the attached tracks.
func (ix *Index) computeAggregates(a *albumState) Album {
	album := a.Album
	album.TracksCount = len(a.rows)
	album.IsSingleDiscAlbum = true
	album.HighestRating = 0
	album.Duration = 0

	var candidates []string
	for i, id := range a.rows {
		t := ix.tracks[id]
		if i > 0 && t.DiscNumber != ix.tracks[a.rows[0]].DiscNumber {
			album.IsSingleDiscAlbum = false
		}
		album.HighestRating = max(album.HighestRating, t.Rating)
		album.Duration += t.Duration
		if c := t.rollupCandidate(); c != "" && !slices.Contains(candidates, c) {
			candidates = append(candidates, c)
		}
	}

	switch len(candidates) {
	case 0:
		album.Artist = a.AlbumArtist
	case 1:
		album.Artist = candidates[0]
	default:
		slices.Sort(candidates)
		album.Artist = ix.rollup(a.AlbumArtist, candidates)
	}
	return album
}

// refreshAlbum recomputes the aggregates of a, moves the rollup artist
// reference when it changed and reports what changed since before.
// denormalized is set when a value copied onto each track row changed.
func (ix *Index) refreshAlbum(a *albumState, before Album) (changed, denormalized bool) {
	a.Album = ix.computeAggregates(a)

	if a.Artist != a.ref {
		old := a.ref
		a.ref = a.Artist
		ix.retainArtist(a.Artist, true)
		ix.releaseArtist(old, true)
	}

	denormalized = before.TracksCount != a.TracksCount ||
		before.IsSingleDiscAlbum != a.IsSingleDiscAlbum ||
		before.Artist != a.Artist
	changed = denormalized || before != a.Album
	if changed {
		ix.changes.putAlbum(a.ID)
	}
	return changed, denormalized
}

// setArt fills an empty album art URI from the covers map or the track.
func setArt(a *albumState, t *Track, covers map[string]string) {
	if a.ArtURI != "" {
		return
	}
	if uri := covers[t.AlbumTitle]; uri != "" {
		a.ArtURI = uri
		return
	}
	if len(t.CoverURIs) > 0 {
		a.ArtURI = t.CoverURIs[0]
	}
}

// decorate copies album-derived values onto a track copy.
func (ix *Index) decorate(t Track) Track {
	t = t.clone()
	if a, ok := ix.albums[t.AlbumID]; ok {
		t.IsSingleDiscAlbum = a.IsSingleDiscAlbum
	}
	return t
}

// announceAlbumChange queues the notifications of a modified album. skipRow
// is the row excluded from the per-sibling refresh, -1 for none.
func (ix *Index) announceAlbumChange(a *albumState, denormalized bool, skipRow int) {
	if row := ix.albumRow(a.ID); row >= 0 {
		ix.bus.changed(albumsScope, row, row)
	}
	ix.bus.emit(Event{Type: EventAlbumModified, Album: a.Album})
	if !denormalized {
		return
	}
	for row := range a.rows {
		if row != skipRow {
			ix.bus.changed(AlbumScope(a.ID), row, row)
		}
	}
}
