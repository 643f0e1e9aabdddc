package search

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicindex/internal/library"
)

func newIndexes(t *testing.T) (*library.Index, *BleveIndex) {
	t.Helper()
	b := New(nil)
	require.NoError(t, b.InitializeInMemory())
	t.Cleanup(func() { b.Close() })

	ix, err := library.Open(library.Options{})
	require.NoError(t, err)
	ix.Subscribe(b)
	return ix, b
}

func fixtures() []library.Track {
	return []library.Track{
		{Title: "Paint It Black", Artist: "The Rolling Stones", AlbumArtist: "The Rolling Stones", AlbumTitle: "Greatest Hits", TrackNumber: 1, Genre: "Rock", ResourceURI: "/music/stones/01.flac"},
		{Title: "Angie", Artist: "The Rolling Stones", AlbumArtist: "The Rolling Stones", AlbumTitle: "Greatest Hits", TrackNumber: 2, Genre: "Rock", ResourceURI: "/music/stones/02.flac"},
		{Title: "Infanta", Artist: "The Decemberists", AlbumArtist: "The Decemberists", AlbumTitle: "Live Home", TrackNumber: 1, Genre: "Folk", ResourceURI: "/music/decemberists/01.ogg"},
	}
}

func titles(tracks []library.Track) []string {
	var out []string
	for _, t := range tracks {
		out = append(out, t.Title)
	}
	return out
}

func TestBleveIndexFollowsLibrary(t *testing.T) {
	ix, b := newIndexes(t)
	tracks := fixtures()
	require.NoError(t, ix.InsertTracksList(tracks, nil, "local:/music"))

	count, err := b.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	modified := tracks[1]
	modified.Title = "Angie (Remastered)"
	require.NoError(t, ix.ModifyTracksList([]library.Track{modified}, nil, ""))

	results, err := b.Search("$remastered")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ix.TrackIDFromResourceURI(modified.ResourceURI), results[0].ID)
	assert.Equal(t, "local:/music", results[0].Source)

	require.NoError(t, ix.RemoveTracksList([]string{tracks[0].ResourceURI}))
	count, err = b.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	uris, err := b.ResourceURIs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{tracks[1].ResourceURI, tracks[2].ResourceURI}, uris)
}

func TestBleveIndexSearch(t *testing.T) {
	ix, b := newIndexes(t)
	require.NoError(t, ix.InsertTracksList(fixtures(), nil, ""))

	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"Paint It Black", "Angie", "Infanta"}},
		{"@decemberists", []string{"Infanta"}},
		{"@decemberists, @stones", []string{"Paint It Black", "Angie", "Infanta"}},
		{"!rock, $angie", []string{"Angie"}},
		{"!folk, $angie", nil},
		{"title:infanta", []string{"Infanta"}},
		{"+genre:rock -title:angie", []string{"Paint It Black"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			results, err := b.Search(tt.input)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, titles(results))
		})
	}
}

func TestBleveIndexRebuild(t *testing.T) {
	ix, err := library.Open(library.Options{})
	require.NoError(t, err)
	require.NoError(t, ix.InsertTracksList(fixtures(), nil, ""))

	b := New(nil)
	require.NoError(t, b.InitializeInMemory())
	defer b.Close()

	require.NoError(t, b.Rebuild(ix.AllTracks()))
	count, err := b.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, b.Rebuild(ix.AllTracks()[:1]))
	count, err = b.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, b.Clear())
	count, err = b.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func richTracks(n int) []library.Track {
	var tracks []library.Track
	for i := 1; i <= n; i++ {
		tracks = append(tracks, library.Track{
			Title:       fmt.Sprintf("Track %d", i),
			Artist:      "Nina Simone",
			AlbumArtist: "Nina Simone",
			AlbumTitle:  fmt.Sprintf("Album %d", (i+1)/2),
			TrackNumber: i,
			DiscNumber:  1,
			Duration:    3 * time.Minute,
			Rating:      7,
			CoverURIs:   []string{fmt.Sprintf("/music/nina/%d/cover.jpg", (i+1)/2)},
			Genre:       "Jazz",
			Composer:    "Nina Simone",
			Lyricist:    "Langston Hughes",
			ResourceURI: fmt.Sprintf("/music/nina/%02d.flac", i),
		})
	}
	return tracks
}

func TestBleveIndexPersistsLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.sqlite")
	b := New(nil)
	b.page = 2
	require.NoError(t, b.Initialize(path))

	ix, err := library.Open(library.Options{Store: b})
	require.NoError(t, err)
	batch := richTracks(7)
	require.NoError(t, ix.InsertTracksList(batch, nil, "local:/music"))
	require.NoError(t, ix.RemoveTracksList([]string{batch[2].ResourceURI}))
	moved := batch[0]
	moved.AlbumTitle = "Singles"
	require.NoError(t, ix.ModifyTracksList([]library.Track{moved}, nil, ""))
	require.NoError(t, b.Close())

	reopened := New(nil)
	reopened.page = 2
	require.NoError(t, reopened.Initialize(path))
	defer reopened.Close()
	again, err := library.Open(library.Options{Store: reopened})
	require.NoError(t, err)

	assert.Equal(t, 6, again.TracksCount())
	assert.Equal(t, ix.AlbumsCount(), again.AlbumsCount())
	assert.Equal(t, ix.ArtistsCount(), again.ArtistsCount())
	assert.Equal(t, ix.AllAlbums(), again.AllAlbums())
	assert.Equal(t, ix.AllArtists(), again.AllArtists())
	assert.Equal(t, ix.AllTracks(), again.AllTracks())

	stored := again.TrackFromDatabaseID(again.TrackIDFromResourceURI(batch[3].ResourceURI))
	assert.Equal(t, 3*time.Minute, stored.Duration)
	assert.Equal(t, 7, stored.Rating)
	assert.Equal(t, "Langston Hughes", stored.Lyricist)
	assert.Equal(t, []string{"/music/nina/2/cover.jpg"}, stored.CoverURIs)

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	uris, err := reopened.ResourceURIs()
	require.NoError(t, err)
	assert.Len(t, uris, 6)
}

func TestBleveIndexSearchPages(t *testing.T) {
	ix, b := newIndexes(t)
	b.page = 3
	require.NoError(t, ix.InsertTracksList(richTracks(10), nil, ""))

	results, err := b.Search("")
	require.NoError(t, err)
	require.Len(t, results, 10)

	seen := map[uint64]bool{}
	for _, r := range results {
		assert.False(t, seen[r.ID], "track %d listed twice", r.ID)
		seen[r.ID] = true
		assert.Equal(t, 3*time.Minute, r.Duration)
		assert.Equal(t, "Nina Simone", r.Composer)
		assert.Len(t, r.CoverURIs, 1)
	}

	results, err = b.Search("$track 1")
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	require.NoError(t, b.Clear())
	count, err := b.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
