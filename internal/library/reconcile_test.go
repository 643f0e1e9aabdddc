package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicindex/internal/library"
)

func startReconciler(t *testing.T, ix *library.Index, v library.Verifier) *library.Reconciler {
	t.Helper()
	r := library.NewReconciler(ix, v, 8, nil)
	ix.Subscribe(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func TestConflictingInsertIsReconciled(t *testing.T) {
	ix, rec := openIndex(t, library.Options{})
	stored := track("track1", "artist1", "album1", "artist1", 1, 1)
	stored.Duration = 3 * time.Minute
	require.NoError(t, ix.InsertTracksList([]library.Track{stored}, nil, "local:music"))

	onDisk := stored
	onDisk.Duration = 4 * time.Minute
	startReconciler(t, ix, library.VerifierFunc(func(_ context.Context, _ library.Track) (library.Track, error) {
		return onDisk, nil
	}))
	rec.reset()

	require.NoError(t, ix.InsertTracksList([]library.Track{onDisk}, nil, "local:music"))

	id := ix.TrackIDFromResourceURI(stored.ResourceURI)
	require.Eventually(t, func() bool {
		return ix.TrackFromDatabaseID(id).Duration == 4*time.Minute
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, rec.count(library.EventNewTrackFile))
	assert.Equal(t, 1, ix.TracksCount())
	assert.Equal(t, "local:music", ix.TrackFromDatabaseID(id).Source)
}

func TestURICollisionUnderNewIdentityIsReconciled(t *testing.T) {
	ix, _ := openIndex(t, library.Options{})
	stored := track("track1", "artist1", "album1", "artist1", 1, 1)
	require.NoError(t, ix.InsertTracksList([]library.Track{stored}, nil, ""))

	retagged := stored
	retagged.Title = "Track One"
	startReconciler(t, ix, library.VerifierFunc(func(_ context.Context, _ library.Track) (library.Track, error) {
		return retagged, nil
	}))

	require.NoError(t, ix.InsertTracksList([]library.Track{retagged}, nil, ""))
	assert.Equal(t, "track1", ix.AlbumTracks(ix.AlbumFromTitle("album1").ID)[0].Title,
		"the insert itself must not overwrite the stored record")

	id := ix.TrackIDFromResourceURI(stored.ResourceURI)
	require.Eventually(t, func() bool {
		return ix.TrackFromDatabaseID(id).Title == "Track One"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, ix.TracksCount())
}

func TestReconcilerKeepsUnchangedRecords(t *testing.T) {
	ix, rec := openIndex(t, library.Options{})
	stored := track("track1", "artist1", "album1", "artist1", 1, 1)
	require.NoError(t, ix.InsertTracksList([]library.Track{stored}, nil, ""))

	verified := make(chan struct{}, 1)
	r := startReconciler(t, ix, library.VerifierFunc(func(_ context.Context, s library.Track) (library.Track, error) {
		defer func() { verified <- struct{}{} }()
		return s, nil
	}))
	rec.reset()

	conflicting := stored
	conflicting.Genre = "Jazz"
	require.NoError(t, ix.InsertTracksList([]library.Track{conflicting}, nil, ""))

	select {
	case <-verified:
	case <-time.After(2 * time.Second):
		t.Fatal("verifier was not called")
	}
	require.Eventually(t, func() bool { return r.Pending() == 0 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, rec.count(library.EventTrackModified))
	assert.Empty(t, ix.TrackFromDatabaseID(ix.TrackIDFromResourceURI(stored.ResourceURI)).Genre)
}

func TestReconcilerFailedVerificationKeepsRecord(t *testing.T) {
	ix, _ := openIndex(t, library.Options{})
	stored := track("track1", "artist1", "album1", "artist1", 1, 1)
	require.NoError(t, ix.InsertTracksList([]library.Track{stored}, nil, ""))

	r := startReconciler(t, ix, library.VerifierFunc(func(context.Context, library.Track) (library.Track, error) {
		return library.Track{}, errors.New("file vanished")
	}))

	conflicting := stored
	conflicting.Rating = 8
	require.NoError(t, ix.InsertTracksList([]library.Track{conflicting}, nil, ""))

	require.Eventually(t, func() bool { return r.Pending() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, stored.Rating, ix.TrackFromDatabaseID(ix.TrackIDFromResourceURI(stored.ResourceURI)).Rating)
}

func TestReconcilerOneRequestPerResource(t *testing.T) {
	release := make(chan struct{})
	r := library.NewReconciler(nil, library.VerifierFunc(func(ctx context.Context, s library.Track) (library.Track, error) {
		<-release
		return s, nil
	}), 4, nil)

	stored := track("track1", "artist1", "album1", "artist1", 1, 1)
	other := track("track2", "artist1", "album1", "artist1", 2, 1)

	assert.True(t, r.Post(stored))
	assert.False(t, r.Post(stored))
	assert.True(t, r.Post(other))
	assert.Equal(t, 2, r.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	close(release)
	require.Eventually(t, func() bool { return r.Pending() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, r.Post(stored))
}

func TestReconcilerDropsWhenQueueFull(t *testing.T) {
	r := library.NewReconciler(nil, library.VerifierFunc(func(_ context.Context, s library.Track) (library.Track, error) {
		return s, nil
	}), 1, nil)

	assert.True(t, r.Post(track("a", "x", "y", "x", 1, 1)))
	assert.False(t, r.Post(track("b", "x", "y", "x", 2, 1)))
	assert.Equal(t, 1, r.Pending())
}

func TestReconcilerReleasesQueuedRequestsOnShutdown(t *testing.T) {
	r := library.NewReconciler(nil, library.VerifierFunc(func(_ context.Context, s library.Track) (library.Track, error) {
		return s, nil
	}), 4, nil)

	queued := albumTracks("album1", "artist1", 1, 3)
	for _, tr := range queued {
		require.True(t, r.Post(tr))
	}
	assert.Equal(t, 3, r.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)

	assert.Zero(t, r.Pending())
	for _, tr := range queued {
		assert.True(t, r.Post(tr))
	}
}
