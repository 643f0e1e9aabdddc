package library

import "go.uber.org/zap"

// InsertTracksList adds a batch of track records collected under source.
// covers maps album titles to cover URIs. Records already present under the
// same logical identity are left untouched; a record whose resource URI is
// stored with different metadata is routed to reconciliation.
func (ix *Index) InsertTracksList(tracks []Track, covers map[string]string, source string) error {
	return ix.run("insert tracks", len(tracks), func(i int) {
		ix.insertOne(tracks[i], covers, source)
	})
}

// ModifyTracksList overwrites stored tracks in place. A record matches by
// resource URI first, then by logical identity. An empty source keeps the
// stored provenance tag.
func (ix *Index) ModifyTracksList(tracks []Track, covers map[string]string, source string) error {
	return ix.run("modify tracks", len(tracks), func(i int) {
		ix.modifyOne(tracks[i], covers, source)
	})
}

// RemoveTracksList removes the tracks stored under the given resource URIs.
// Unknown URIs are ignored.
func (ix *Index) RemoveTracksList(uris []string) error {
	return ix.run("remove tracks", len(uris), func(i int) {
		id, ok := ix.byURI[uris[i]]
		if !ok {
			return
		}
		ix.detach(ix.tracks[id], true)
	})
}

func checkIdentity(t Track) error {
	if t.Title == "" || t.ResourceURI == "" {
		return ErrMissingIdentity
	}
	return nil
}

func (ix *Index) insertOne(rec Track, covers map[string]string, source string) {
	if err := checkIdentity(rec); err != nil {
		ix.log.Warn("skipping track record",
			zap.String("title", rec.Title), zap.String("uri", rec.ResourceURI), zap.Error(err))
		return
	}
	rec = normalize(rec)
	rec.Source = source

	if id, ok := ix.byKey[rec.Key()]; ok {
		existing := ix.tracks[id]
		if existing.ResourceURI == rec.ResourceURI && !sameMetadata(*existing, rec) {
			ix.requestVerification(existing)
		}
		return
	}
	if id, ok := ix.byURI[rec.ResourceURI]; ok {
		ix.requestVerification(ix.tracks[id])
		return
	}

	t := rec
	t.ID = ix.nextTrackID
	t.AlbumID = 0
	t.IsSingleDiscAlbum = false
	ix.nextTrackID++
	ix.attach(&t, covers, true)

	ix.log.Debug("track added",
		zap.Uint64("id", t.ID), zap.String("title", t.Title), zap.String("uri", t.ResourceURI))
}

func (ix *Index) requestVerification(existing *Track) {
	ix.log.Debug("track needs verification", zap.String("uri", existing.ResourceURI))
	ix.bus.emit(Event{Type: EventNewTrackFile, Track: ix.decorate(*existing)})
}

func (ix *Index) modifyOne(rec Track, covers map[string]string, source string) {
	if err := checkIdentity(rec); err != nil {
		ix.log.Warn("skipping track record",
			zap.String("title", rec.Title), zap.String("uri", rec.ResourceURI), zap.Error(err))
		return
	}
	rec = normalize(rec)

	id, ok := ix.byURI[rec.ResourceURI]
	if !ok {
		id, ok = ix.byKey[rec.Key()]
	}
	if !ok {
		ix.log.Debug("no stored track to modify", zap.String("uri", rec.ResourceURI))
		return
	}
	stored := ix.tracks[id]
	old := stored.clone()

	upd := rec
	upd.ID = id
	upd.AlbumID = old.AlbumID
	upd.IsSingleDiscAlbum = false
	upd.Source = old.Source
	if source != "" {
		upd.Source = source
	}
	if sameMetadata(old, upd) && old.Source == upd.Source {
		return
	}
	if other, taken := ix.byKey[upd.Key()]; taken && other != id {
		ix.log.Warn("modified identity already stored",
			zap.String("uri", upd.ResourceURI), zap.Uint64("other", other))
		return
	}
	if other, taken := ix.byURI[upd.ResourceURI]; taken && other != id {
		ix.log.Warn("modified resource already stored",
			zap.String("uri", upd.ResourceURI), zap.Uint64("other", other))
		return
	}

	if upd.albumKey() != old.albumKey() {
		ix.moveTrack(stored, upd, covers)
		return
	}

	album := ix.albums[old.AlbumID]
	before := album.Album

	delete(ix.byKey, old.Key())
	delete(ix.byURI, old.ResourceURI)
	*stored = upd
	ix.byKey[upd.Key()] = id
	ix.byURI[upd.ResourceURI] = id
	setArt(album, stored, covers)
	ix.changes.putTrack(id)

	changed, denormalized := ix.refreshAlbum(album, before)
	if old.Artist != upd.Artist {
		ix.retainArtist(upd.Artist, false)
		ix.releaseArtist(old.Artist, false)
	}

	row := album.rowOf(id)
	ix.bus.changed(AlbumScope(album.ID), row, row)
	ix.bus.emit(Event{Type: EventTrackModified, Track: ix.decorate(*stored)})
	if changed {
		ix.announceAlbumChange(album, denormalized, row)
	}
}

// moveTrack re-homes a track whose album identity changed. The track keeps
// its id and is reported as modified.
func (ix *Index) moveTrack(stored *Track, upd Track, covers map[string]string) {
	// Hold the new artist across the move so a shared name survives the detach.
	ix.retainArtist(upd.Artist, false)
	ix.detach(stored, false)

	t := upd
	t.AlbumID = 0
	ix.attach(&t, covers, false)
	ix.releaseArtist(upd.Artist, false)

	ix.bus.emit(Event{Type: EventTrackModified, Track: ix.decorate(t)})
}
