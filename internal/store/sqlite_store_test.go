//go:build cgo

package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicindex/internal/library"
)

func openStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s := &SQLiteStore{}
	require.NoError(t, s.Initialize(path))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTracks() []library.Track {
	var tracks []library.Track
	for n := 1; n <= 3; n++ {
		tracks = append(tracks, library.Track{
			Title:       fmt.Sprintf("track%d", n),
			Artist:      "The Rolling Stones",
			AlbumTitle:  "Greatest Hits",
			AlbumArtist: "The Rolling Stones",
			TrackNumber: n,
			DiscNumber:  1,
			Duration:    time.Duration(n) * time.Minute,
			ResourceURI: fmt.Sprintf("/music/stones/%02d.flac", n),
			Genre:       "Rock",
			Rating:      n * 2,
		})
	}
	tracks = append(tracks, library.Track{
		Title:       "Infanta",
		Artist:      "The Decemberists",
		AlbumTitle:  "Live Home",
		AlbumArtist: "The Decemberists",
		TrackNumber: 1,
		DiscNumber:  2,
		ResourceURI: "/music/decemberists/infanta.ogg",
		CoverURIs:   []string{"/music/decemberists/cover.jpg"},
		Genre:       "Folk",
	})
	return tracks
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.sqlite")
	s := openStore(t, path)

	ix, err := library.Open(library.Options{Store: s})
	require.NoError(t, err)
	batch := sampleTracks()
	require.NoError(t, ix.InsertTracksList(batch, nil, "local:/music"))
	require.NoError(t, ix.RemoveTracksList([]string{batch[1].ResourceURI}))

	moved := batch[0]
	moved.AlbumTitle = "Singles"
	require.NoError(t, ix.ModifyTracksList([]library.Track{moved}, nil, ""))
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	again, err := library.Open(library.Options{Store: reopened})
	require.NoError(t, err)

	assert.Equal(t, ix.AlbumsCount(), again.AlbumsCount())
	assert.Equal(t, ix.ArtistsCount(), again.ArtistsCount())
	assert.Equal(t, ix.TracksCount(), again.TracksCount())
	assert.Equal(t, ix.AllAlbums(), again.AllAlbums())
	assert.Equal(t, ix.AllArtists(), again.AllArtists())
	assert.Equal(t, ix.AllTracks(), again.AllTracks())

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSQLiteStoreSearch(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "library.sqlite"))
	ix, err := library.Open(library.Options{Store: s})
	require.NoError(t, err)
	require.NoError(t, ix.InsertTracksList(sampleTracks(), nil, ""))

	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"Infanta", "track1", "track2", "track3"}},
		{"@rolling stones, #greatest", []string{"track1", "track2", "track3"}},
		{"@stones, @decemberists", []string{"Infanta", "track1", "track2", "track3"}},
		{"@decemberists, #live, $infanta", []string{"Infanta"}},
		{"!folk", []string{"Infanta"}},
		{"!folk, $track", nil},
		{"track2", []string{"track2"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			results, err := s.Search(tt.input)
			require.NoError(t, err)
			var titles []string
			for _, r := range results {
				titles = append(titles, r.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	results, err := s.Search("$infanta")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"/music/decemberists/cover.jpg"}, results[0].CoverURIs)
	assert.True(t, results[0].IsSingleDiscAlbum)
}

func TestSQLiteStoreClear(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "library.sqlite"))
	ix, err := library.Open(library.Options{Store: s})
	require.NoError(t, err)
	require.NoError(t, ix.InsertTracksList(sampleTracks(), nil, ""))

	uris, err := s.ResourceURIs()
	require.NoError(t, err)
	assert.Len(t, uris, 4)

	require.NoError(t, s.Clear())
	count, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Albums)
	assert.Empty(t, snap.Artists)
}
