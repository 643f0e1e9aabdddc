package scanner

import (
	"context"
	"fmt"

	"musicindex/internal/library"
)

// TagVerifier re-reads the tags of a local file. Fields tags do not carry
// are kept from the stored record.
type TagVerifier struct{}

var _ library.Verifier = TagVerifier{}

func (TagVerifier) Verify(ctx context.Context, stored library.Track) (library.Track, error) {
	if err := ctx.Err(); err != nil {
		return library.Track{}, err
	}
	fresh, err := readTrack(stored.ResourceURI)
	if err != nil {
		return library.Track{}, fmt.Errorf("verify %s: %w", stored.ResourceURI, err)
	}
	fresh.Duration = stored.Duration
	fresh.Rating = stored.Rating
	fresh.Lyricist = stored.Lyricist
	if len(fresh.CoverURIs) == 0 {
		fresh.CoverURIs = stored.CoverURIs
	}
	return fresh, nil
}
