//go:build cgo

package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"musicindex/internal/library"
	"musicindex/internal/query"
)

//go:embed schema.sql
var schema string

// SQLiteStore keeps the library in a single SQLite file. It implements both
// library.Store and Datastore.
type SQLiteStore struct {
	db *sqlx.DB
}

type artistRow struct {
	ID          uint64 `db:"id"`
	Name        string `db:"name"`
	AlbumsCount int    `db:"albums_count"`
}

type albumRow struct {
	ID            uint64 `db:"id"`
	Title         string `db:"title"`
	AlbumArtist   string `db:"album_artist"`
	Artist        string `db:"artist"`
	ArtURI        string `db:"art_uri"`
	TracksCount   int    `db:"tracks_count"`
	SingleDisc    bool   `db:"single_disc"`
	HighestRating int    `db:"highest_rating"`
	DurationMS    int64  `db:"duration_ms"`
}

type trackRow struct {
	ID          uint64 `db:"id"`
	Title       string `db:"title"`
	Artist      string `db:"artist"`
	AlbumTitle  string `db:"album_title"`
	AlbumArtist string `db:"album_artist"`
	AlbumID     uint64 `db:"album_id"`
	TrackNumber int    `db:"track_number"`
	DiscNumber  int    `db:"disc_number"`
	DurationMS  int64  `db:"duration_ms"`
	ResourceURI string `db:"resource_uri"`
	Covers      string `db:"covers"`
	Rating      int    `db:"rating"`
	Genre       string `db:"genre"`
	Composer    string `db:"composer"`
	Lyricist    string `db:"lyricist"`
	Source      string `db:"source"`
	SingleDisc  bool   `db:"single_disc"`
}

const trackColumns = `id, title, artist, album_title, album_artist, album_id, track_number, disc_number,
	duration_ms, resource_uri, covers, rating, genre, composer, lyricist, source`

// The single-disc flag is read from the owning album.
const trackSelect = `SELECT t.id, t.title, t.artist, t.album_title, t.album_artist, t.album_id,
	t.track_number, t.disc_number, t.duration_ms, t.resource_uri, t.covers, t.rating, t.genre,
	t.composer, t.lyricist, t.source, a.single_disc
	FROM tracks t JOIN albums a ON a.id = t.album_id`

const trackOrder = " ORDER BY t.album_artist, t.album_title, t.disc_number, t.track_number, t.id"

func (s *SQLiteStore) Initialize(path string) error {
	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	for _, table := range []string{"tracks", "albums", "artists"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Load implements library.Store.
func (s *SQLiteStore) Load() (*library.Snapshot, error) {
	var artists []artistRow
	if err := s.db.Select(&artists, "SELECT id, name, albums_count FROM artists ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to load artists: %w", err)
	}
	var albums []albumRow
	if err := s.db.Select(&albums, `SELECT id, title, album_artist, artist, art_uri, tracks_count,
		single_disc, highest_rating, duration_ms FROM albums ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load albums: %w", err)
	}
	tracks, err := s.selectTracks(trackSelect + " ORDER BY t.id")
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	snap := &library.Snapshot{Tracks: tracks}
	for _, a := range artists {
		snap.Artists = append(snap.Artists, library.Artist{ID: a.ID, Name: a.Name, AlbumsCount: a.AlbumsCount})
	}
	for _, a := range albums {
		snap.Albums = append(snap.Albums, library.Album{
			ID:                a.ID,
			Title:             a.Title,
			AlbumArtist:       a.AlbumArtist,
			Artist:            a.Artist,
			ArtURI:            a.ArtURI,
			TracksCount:       a.TracksCount,
			IsSingleDiscAlbum: a.SingleDisc,
			HighestRating:     a.HighestRating,
			Duration:          time.Duration(a.DurationMS) * time.Millisecond,
		})
	}
	return snap, nil
}

// Apply implements library.Store. The change set is written in one transaction.
func (s *SQLiteStore) Apply(cs *library.Changeset) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	if err := apply(tx, cs); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func apply(tx *sqlx.Tx, cs *library.Changeset) error {
	// Albums go after the tracks that referenced them have been rewritten.
	if err := deleteIDs(tx, "tracks", cs.RemovedTracks); err != nil {
		return err
	}
	if err := deleteIDs(tx, "artists", cs.RemovedArtists); err != nil {
		return err
	}

	for _, a := range cs.Artists {
		_, err := tx.NamedExec(`INSERT INTO artists (id, name, albums_count) VALUES (:id, :name, :albums_count)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, albums_count = excluded.albums_count`,
			artistRow{ID: a.ID, Name: a.Name, AlbumsCount: a.AlbumsCount})
		if err != nil {
			return fmt.Errorf("failed to write artist %q: %w", a.Name, err)
		}
	}

	for _, a := range cs.Albums {
		_, err := tx.NamedExec(`INSERT INTO albums (id, title, album_artist, artist, art_uri, tracks_count,
				single_disc, highest_rating, duration_ms)
			VALUES (:id, :title, :album_artist, :artist, :art_uri, :tracks_count,
				:single_disc, :highest_rating, :duration_ms)
			ON CONFLICT (id) DO UPDATE SET title = excluded.title, album_artist = excluded.album_artist,
				artist = excluded.artist, art_uri = excluded.art_uri, tracks_count = excluded.tracks_count,
				single_disc = excluded.single_disc, highest_rating = excluded.highest_rating,
				duration_ms = excluded.duration_ms`,
			albumRow{
				ID:            a.ID,
				Title:         a.Title,
				AlbumArtist:   a.AlbumArtist,
				Artist:        a.Artist,
				ArtURI:        a.ArtURI,
				TracksCount:   a.TracksCount,
				SingleDisc:    a.IsSingleDiscAlbum,
				HighestRating: a.HighestRating,
				DurationMS:    a.Duration.Milliseconds(),
			})
		if err != nil {
			return fmt.Errorf("failed to write album %q: %w", a.Title, err)
		}
	}

	for _, t := range cs.Tracks {
		row, err := toTrackRow(t)
		if err != nil {
			return err
		}
		_, err = tx.NamedExec(`INSERT INTO tracks (`+trackColumns+`)
			VALUES (:id, :title, :artist, :album_title, :album_artist, :album_id, :track_number, :disc_number,
				:duration_ms, :resource_uri, :covers, :rating, :genre, :composer, :lyricist, :source)
			ON CONFLICT (id) DO UPDATE SET title = excluded.title, artist = excluded.artist,
				album_title = excluded.album_title, album_artist = excluded.album_artist,
				album_id = excluded.album_id, track_number = excluded.track_number,
				disc_number = excluded.disc_number, duration_ms = excluded.duration_ms,
				resource_uri = excluded.resource_uri, covers = excluded.covers, rating = excluded.rating,
				genre = excluded.genre, composer = excluded.composer, lyricist = excluded.lyricist,
				source = excluded.source`, row)
		if err != nil {
			return fmt.Errorf("failed to write track %q: %w", t.ResourceURI, err)
		}
	}
	return deleteIDs(tx, "albums", cs.RemovedAlbums)
}

func deleteIDs(tx *sqlx.Tx, table string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM "+table+" WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(tx.Rebind(q), args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) Count() (int, error) {
	var count int
	err := s.db.Get(&count, "SELECT COUNT(*) FROM tracks")
	return count, err
}

func (s *SQLiteStore) ResourceURIs() ([]string, error) {
	var uris []string
	err := s.db.Select(&uris, "SELECT resource_uri FROM tracks ORDER BY id")
	return uris, err
}

// Search runs an SMJ7-style query over the stored tracks.
func (s *SQLiteStore) Search(input string) ([]library.Track, error) {
	q := query.Parse(input)

	var sqlParts []string
	var args []interface{}
	for _, g := range q.Groups() {
		var subParts []string
		for _, term := range g.Terms {
			var fieldParts []string
			for _, f := range g.Fields {
				for _, col := range columns[f] {
					fieldParts = append(fieldParts, col+" LIKE ?")
					args = append(args, "%"+term+"%")
				}
			}
			subParts = append(subParts, "("+strings.Join(fieldParts, " OR ")+")")
		}
		sqlParts = append(sqlParts, "("+strings.Join(subParts, " OR ")+")")
	}

	stmt := trackSelect
	if len(sqlParts) > 0 {
		stmt += " WHERE " + strings.Join(sqlParts, " AND ")
	}
	return s.selectTracks(stmt+trackOrder, args...)
}

var columns = map[query.Field][]string{
	query.Genre:  {"t.genre"},
	query.Artist: {"t.artist", "t.album_artist"},
	query.Album:  {"t.album_title"},
	query.Title:  {"t.title"},
}

func (s *SQLiteStore) selectTracks(stmt string, args ...interface{}) ([]library.Track, error) {
	var rows []trackRow
	if err := s.db.Select(&rows, stmt, args...); err != nil {
		return nil, err
	}
	tracks := make([]library.Track, 0, len(rows))
	for _, r := range rows {
		t, err := fromTrackRow(r)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func toTrackRow(t library.Track) (trackRow, error) {
	covers, err := json.Marshal(t.CoverURIs)
	if err != nil {
		return trackRow{}, err
	}
	if t.CoverURIs == nil {
		covers = []byte("[]")
	}
	return trackRow{
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		AlbumTitle:  t.AlbumTitle,
		AlbumArtist: t.AlbumArtist,
		AlbumID:     t.AlbumID,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.DiscNumber,
		DurationMS:  t.Duration.Milliseconds(),
		ResourceURI: t.ResourceURI,
		Covers:      string(covers),
		Rating:      t.Rating,
		Genre:       t.Genre,
		Composer:    t.Composer,
		Lyricist:    t.Lyricist,
		Source:      t.Source,
	}, nil
}

func fromTrackRow(r trackRow) (library.Track, error) {
	var covers []string
	if err := json.Unmarshal([]byte(r.Covers), &covers); err != nil {
		return library.Track{}, fmt.Errorf("track %d: bad covers column: %w", r.ID, err)
	}
	if len(covers) == 0 {
		covers = nil
	}
	return library.Track{
		ID:                r.ID,
		Title:             r.Title,
		Artist:            r.Artist,
		AlbumTitle:        r.AlbumTitle,
		AlbumArtist:       r.AlbumArtist,
		AlbumID:           r.AlbumID,
		TrackNumber:       r.TrackNumber,
		DiscNumber:        r.DiscNumber,
		Duration:          time.Duration(r.DurationMS) * time.Millisecond,
		ResourceURI:       r.ResourceURI,
		CoverURIs:         covers,
		Rating:            r.Rating,
		Genre:             r.Genre,
		Composer:          r.Composer,
		Lyricist:          r.Lyricist,
		Source:            r.Source,
		IsSingleDiscAlbum: r.SingleDisc,
	}, nil
}
