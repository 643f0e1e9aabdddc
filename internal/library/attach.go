package library

import "sort"

// attach links t into the model under its album, creating the album when
// needed. announce controls the trackAdded event; a moved track is reported
// as modified by the caller instead.
func (ix *Index) attach(t *Track, covers map[string]string, announce bool) {
	key := t.albumKey()
	album, existed := ix.albums[ix.albumByKey[key]]
	if !existed {
		album = &albumState{Album: Album{ID: ix.nextAlbumID, Title: key.Title, AlbumArtist: key.Artist}}
		ix.nextAlbumID++
		ix.albums[album.ID] = album
		ix.albumByKey[key] = album.ID
	}
	before := album.Album

	t.AlbumID = album.ID
	ix.tracks[t.ID] = t
	ix.byKey[t.Key()] = t.ID
	ix.byURI[t.ResourceURI] = t.ID

	row := sort.Search(len(album.rows), func(i int) bool {
		return rowLess(t, ix.tracks[album.rows[i]])
	})
	album.rows = insertAt(album.rows, row, t.ID)
	setArt(album, t, covers)
	ix.changes.putTrack(t.ID)

	if !existed {
		album.Album = ix.computeAggregates(album)
		albumRow := sort.Search(len(ix.albumOrder), func(i int) bool {
			return ix.albumLess(album, ix.albums[ix.albumOrder[i]])
		})
		ix.albumOrder = insertAt(ix.albumOrder, albumRow, album.ID)
		ix.bus.insertRows(albumsScope, albumRow, albumRow)
		ix.bus.emit(Event{Type: EventAlbumAdded, Album: album.Album})
	}

	changed, denormalized := ix.refreshAlbum(album, before)
	ix.retainArtist(t.Artist, false)

	ix.bus.insertRows(AlbumScope(album.ID), row, row)
	if announce {
		ix.bus.emit(Event{Type: EventTrackAdded, Track: ix.decorate(*t)})
	}
	if existed && changed {
		ix.announceAlbumChange(album, denormalized, row)
	}
}

// detach unlinks t from the model. An album left without tracks is removed
// before the track's artist references are released.
func (ix *Index) detach(t *Track, announce bool) {
	album := ix.albums[t.AlbumID]
	before := album.Album
	removed := ix.decorate(*t)

	row := album.rowOf(t.ID)
	album.rows = removeAt(album.rows, row)
	delete(ix.tracks, t.ID)
	if ix.byKey[t.Key()] == t.ID {
		delete(ix.byKey, t.Key())
	}
	if ix.byURI[t.ResourceURI] == t.ID {
		delete(ix.byURI, t.ResourceURI)
	}

	ix.bus.removeRows(AlbumScope(album.ID), row, row)
	if announce {
		ix.bus.emit(Event{Type: EventTrackRemoved, Track: removed})
		ix.changes.dropTrack(t.ID)
	}

	if len(album.rows) > 0 {
		if changed, _ := ix.refreshAlbum(album, before); changed {
			ix.announceAlbumChange(album, false, -1)
		}
		ix.releaseArtist(t.Artist, false)
		return
	}

	albumRow := ix.albumRow(album.ID)
	if albumRow >= 0 {
		ix.albumOrder = removeAt(ix.albumOrder, albumRow)
		ix.bus.removeRows(albumsScope, albumRow, albumRow)
	}
	delete(ix.albums, album.ID)
	delete(ix.albumByKey, AlbumKey{Title: album.Title, Artist: album.AlbumArtist})
	album.TracksCount = 0
	ix.bus.emit(Event{Type: EventAlbumRemoved, Album: album.Album})
	ix.changes.dropAlbum(album.ID)

	ix.releaseArtist(t.Artist, false)
	ix.releaseArtist(album.ref, true)
}
