package playlist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicindex/internal/library"
)

func tracks(n int) []library.Track {
	var out []library.Track
	for i := 1; i <= n; i++ {
		out = append(out, library.Track{
			ID:          uint64(i),
			Title:       fmt.Sprintf("track%d", i),
			ResourceURI: fmt.Sprintf("/music/%d.ogg", i),
		})
	}
	return out
}

func ids(ts []library.Track) []uint64 {
	var out []uint64
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestNextPrevious(t *testing.T) {
	p := New(tracks(3))

	cur, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(1), cur.ID)

	_, ok = p.Previous()
	assert.False(t, ok)

	next, _ := p.Next()
	assert.Equal(t, uint64(2), next.ID)
	next, _ = p.Next()
	assert.Equal(t, uint64(3), next.ID)

	_, ok = p.Next()
	assert.False(t, ok)
	_, ok = p.Current()
	assert.False(t, ok)

	prev, ok := p.Previous()
	require.True(t, ok)
	assert.Equal(t, uint64(3), prev.ID)
}

func TestRepeatWraps(t *testing.T) {
	p := New(tracks(2))
	p.SetRepeat(true)

	prev, ok := p.Previous()
	require.True(t, ok)
	assert.Equal(t, uint64(2), prev.ID)

	next, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(1), next.ID)
}

func TestShuffleKeepsCurrent(t *testing.T) {
	p := New(tracks(20))
	p.Next()
	p.Next()

	p.SetShuffle(true)
	cur, _ := p.Current()
	assert.Equal(t, uint64(3), cur.ID)
	assert.ElementsMatch(t, ids(p.Entries()), ids(p.Queue()))

	seen := map[uint64]bool{cur.ID: true}
	for {
		next, ok := p.Next()
		if !ok {
			break
		}
		assert.False(t, seen[next.ID], "track %d played twice", next.ID)
		seen[next.ID] = true
	}
	assert.Len(t, seen, 20)

	p.SetShuffle(false)
	assert.Equal(t, ids(p.Entries()), ids(p.Queue()))
}

func TestFromCommand(t *testing.T) {
	results := tracks(5)

	p, err := FromCommand("a", results)
	require.NoError(t, err)
	assert.Equal(t, ids(results), ids(p.Queue()))

	p, err = FromCommand(" 4 ", results)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, ids(p.Queue()))

	p, err = FromCommand("R", results)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	p, err = FromCommand("s", results)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(results), ids(p.Queue()))

	_, err = FromCommand("6", results)
	assert.ErrorIs(t, err, ErrInvalidCommand)
	_, err = FromCommand("x", results)
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestFollowsLibrary(t *testing.T) {
	ix, err := library.Open(library.Options{})
	require.NoError(t, err)

	batch := []library.Track{
		{Title: "One", Artist: "A", AlbumTitle: "X", TrackNumber: 1, ResourceURI: "/x/1.ogg"},
		{Title: "Two", Artist: "A", AlbumTitle: "X", TrackNumber: 2, ResourceURI: "/x/2.ogg"},
		{Title: "Three", Artist: "A", AlbumTitle: "X", TrackNumber: 3, ResourceURI: "/x/3.ogg"},
	}
	require.NoError(t, ix.InsertTracksList(batch, nil, ""))

	p := New(ix.AllTracks())
	ix.Subscribe(p)
	p.Next()

	require.NoError(t, ix.RemoveTracksList([]string{"/x/2.ogg"}))
	assert.Equal(t, 2, p.Len())
	cur, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "Three", cur.Title)

	renamed := batch[0]
	renamed.Title = "One (demo)"
	require.NoError(t, ix.ModifyTracksList([]library.Track{renamed}, nil, ""))
	assert.Equal(t, "One (demo)", p.Entries()[0].Title)

	prev, ok := p.Previous()
	require.True(t, ok)
	assert.Equal(t, "One (demo)", prev.Title)
}

func TestAppendAfterEnd(t *testing.T) {
	p := New(tracks(1))
	_, ok := p.Next()
	require.False(t, ok)

	p.Append(library.Track{ID: 9, Title: "encore"})
	cur, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(9), cur.ID)
	assert.Equal(t, 2, p.Len())
}
