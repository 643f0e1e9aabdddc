package library

import (
	"sort"
	"strings"
)

// AlbumFromTitle returns the first album in display order with the given
// title, or an invalid album.
func (ix *Index) AlbumFromTitle(title string) Album {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, id := range ix.albumOrder {
		if a := ix.albums[id]; a.Title == title {
			return a.Album
		}
	}
	return Album{}
}

// AlbumFromTitleAndArtist looks an album up by title and either its provided
// album artist or its rollup artist.
func (ix *Index) AlbumFromTitleAndArtist(title, artist string) Album {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if id, ok := ix.albumByKey[AlbumKey{Title: title, Artist: artist}]; ok {
		return ix.albums[id].Album
	}
	for _, id := range ix.albumOrder {
		if a := ix.albums[id]; a.Title == title && a.Artist == artist {
			return a.Album
		}
	}
	return Album{}
}

func (ix *Index) AlbumFromID(id uint64) Album {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if a, ok := ix.albums[id]; ok {
		return a.Album
	}
	return Album{}
}

// AlbumTracks returns the tracks of an album in row order.
func (ix *Index) AlbumTracks(albumID uint64) []Track {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	a, ok := ix.albums[albumID]
	if !ok {
		return nil
	}
	tracks := make([]Track, 0, len(a.rows))
	for _, id := range a.rows {
		tracks = append(tracks, ix.decorate(*ix.tracks[id]))
	}
	return tracks
}

// TrackIDFromTitleAlbumArtist returns the id of the first track matching the
// title, album title and track artist, or 0.
func (ix *Index) TrackIDFromTitleAlbumArtist(title, album, artist string) uint64 {
	var found uint64
	ix.eachTrack(func(t *Track) bool {
		if t.Title == title && t.AlbumTitle == album && t.Artist == artist {
			found = t.ID
			return false
		}
		return true
	})
	return found
}

// TrackIDFromTitleAlbumTrackDiscNumber returns the id of the track matching
// every given attribute, or 0. artist matches the track or album artist.
func (ix *Index) TrackIDFromTitleAlbumTrackDiscNumber(title, artist, album string, trackNumber, discNumber int) uint64 {
	var found uint64
	ix.eachTrack(func(t *Track) bool {
		if t.Title == title && t.AlbumTitle == album &&
			t.TrackNumber == trackNumber && t.DiscNumber == discNumber &&
			(t.Artist == artist || t.AlbumArtist == artist) {
			found = t.ID
			return false
		}
		return true
	})
	return found
}

func (ix *Index) TrackIDFromResourceURI(uri string) uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.byURI[uri]
}

// TrackFromDatabaseID returns the track with the given id, or an invalid track.
func (ix *Index) TrackFromDatabaseID(id uint64) Track {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if t, ok := ix.tracks[id]; ok {
		return ix.decorate(*t)
	}
	return Track{}
}

// AllAlbums returns every album in display order.
func (ix *Index) AllAlbums() []Album {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	albums := make([]Album, 0, len(ix.albumOrder))
	for _, id := range ix.albumOrder {
		albums = append(albums, ix.albums[id].Album)
	}
	return albums
}

// AllAlbumsMatching returns the albums whose title contains filter, ignoring
// case, in display order. An empty filter matches every album.
func (ix *Index) AllAlbumsMatching(filter string) []Album {
	filter = strings.ToLower(filter)
	return ix.albumsWhere(func(a *albumState) bool {
		return strings.Contains(strings.ToLower(a.Title), filter)
	})
}

// AllAlbumsFromArtist returns the albums credited to name, either as the
// provided album artist or as the rollup artist.
func (ix *Index) AllAlbumsFromArtist(name string) []Album {
	return ix.albumsWhere(func(a *albumState) bool {
		return a.Artist == name || a.AlbumArtist == name
	})
}

func (ix *Index) albumsWhere(match func(a *albumState) bool) []Album {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var albums []Album
	for _, id := range ix.albumOrder {
		if a := ix.albums[id]; match(a) {
			albums = append(albums, a.Album)
		}
	}
	return albums
}

// AllArtists returns every artist in display order.
func (ix *Index) AllArtists() []Artist {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	artists := make([]Artist, 0, len(ix.artistOrder))
	for _, name := range ix.artistOrder {
		artists = append(artists, ix.artists[name].Artist)
	}
	return artists
}

// AllTracks returns every track, album by album in row order.
func (ix *Index) AllTracks() []Track {
	return ix.collect(func(*Track) bool { return true })
}

// TracksFromAuthor returns the tracks whose artist or album rollup artist is name.
func (ix *Index) TracksFromAuthor(name string) []Track {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var tracks []Track
	for _, albumID := range ix.albumOrder {
		a := ix.albums[albumID]
		for _, id := range a.rows {
			if t := ix.tracks[id]; t.Artist == name || a.Artist == name {
				tracks = append(tracks, ix.decorate(*t))
			}
		}
	}
	return tracks
}

func (ix *Index) AllGenres() []string {
	return ix.distinct(func(t *Track) string { return t.Genre })
}

func (ix *Index) AllComposers() []string {
	return ix.distinct(func(t *Track) string { return t.Composer })
}

func (ix *Index) AllLyricists() []string {
	return ix.distinct(func(t *Track) string { return t.Lyricist })
}

// TracksFromGenre returns the tracks tagged with genre, album by album.
func (ix *Index) TracksFromGenre(genre string) []Track {
	return ix.collect(func(t *Track) bool { return t.Genre == genre })
}

func (ix *Index) TracksFromComposer(name string) []Track {
	return ix.collect(func(t *Track) bool { return t.Composer == name })
}

func (ix *Index) TracksFromLyricist(name string) []Track {
	return ix.collect(func(t *Track) bool { return t.Lyricist == name })
}

// distinct returns the non-empty values of attr across all tracks, sorted
// like artist names.
func (ix *Index) distinct(attr func(t *Track) string) []string {
	seen := make(map[string]struct{})
	ix.eachTrack(func(t *Track) bool {
		if v := attr(t); v != "" {
			seen[v] = struct{}{}
		}
		return true
	})
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return artistLess(values[i], values[j]) })
	return values
}

// AllTracksFromSource returns the tracks last ingested under source.
func (ix *Index) AllTracksFromSource(source string) []Track {
	return ix.collect(func(t *Track) bool { return t.Source == source })
}

func (ix *Index) AlbumsCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.albums)
}

func (ix *Index) ArtistsCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.artists)
}

func (ix *Index) TracksCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.tracks)
}

// ArtistFromName returns the artist entity for name, or an invalid artist.
func (ix *Index) ArtistFromName(name string) Artist {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if a, ok := ix.artists[name]; ok {
		return a.Artist
	}
	return Artist{}
}

// eachTrack visits tracks in album-then-row order until fn returns false.
func (ix *Index) eachTrack(fn func(t *Track) bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, albumID := range ix.albumOrder {
		for _, id := range ix.albums[albumID].rows {
			if !fn(ix.tracks[id]) {
				return
			}
		}
	}
}

func (ix *Index) collect(match func(t *Track) bool) []Track {
	var tracks []Track
	ix.eachTrack(func(t *Track) bool {
		if match(t) {
			tracks = append(tracks, ix.decorate(*t))
		}
		return true
	})
	return tracks
}
