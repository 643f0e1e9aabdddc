package library

import (
	"slices"
	"strings"
	"time"

	"github.com/rainycape/unidecode"
)

// Track represents a single stored track and its metadata.
// Values handed out by the index are copies.
type Track struct {
	ID          uint64        `json:"id"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	AlbumTitle  string        `json:"album"`
	AlbumArtist string        `json:"albumartist"`
	TrackNumber int           `json:"tracknumber"`
	DiscNumber  int           `json:"discnumber"`
	Duration    time.Duration `json:"duration"`
	ResourceURI string        `json:"path"`
	CoverURIs   []string      `json:"covers,omitempty"`
	Rating      int           `json:"rating"`
	Genre       string        `json:"genre"`
	Composer    string        `json:"composer,omitempty"`
	Lyricist    string        `json:"lyricist,omitempty"`
	Source      string        `json:"source"`

	AlbumID           uint64 `json:"albumid"`
	IsSingleDiscAlbum bool   `json:"singledisc"`
}

// IsValid reports whether the track was found in the index.
func (t Track) IsValid() bool {
	return t.ID != 0
}

// TrackKey is the logical identity of a track, independent of its resource URI.
type TrackKey struct {
	Title       string
	AlbumTitle  string
	AlbumArtist string
	TrackNumber int
	DiscNumber  int
}

// Key returns the logical identity of the track.
func (t Track) Key() TrackKey {
	return TrackKey{
		Title:       t.Title,
		AlbumTitle:  t.AlbumTitle,
		AlbumArtist: t.AlbumArtist,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.DiscNumber,
	}
}

func (t Track) albumKey() AlbumKey {
	return AlbumKey{Title: t.AlbumTitle, Artist: t.AlbumArtist}
}

// rollupCandidate is the artist this track votes for as its album's artist.
func (t Track) rollupCandidate() string {
	if t.AlbumArtist != "" {
		return t.AlbumArtist
	}
	return t.Artist
}

func (t Track) clone() Track {
	t.CoverURIs = slices.Clone(t.CoverURIs)
	return t
}

// normalize fills defaulted fields of an incoming record.
func normalize(t Track) Track {
	t = t.clone()
	if t.Artist == "" {
		t.Artist = t.AlbumArtist
	}
	return t
}

// sameMetadata compares the caller-visible attributes of two records.
// Ids, provenance and album-derived fields are ignored.
func sameMetadata(a, b Track) bool {
	return a.Title == b.Title &&
		a.Artist == b.Artist &&
		a.AlbumTitle == b.AlbumTitle &&
		a.AlbumArtist == b.AlbumArtist &&
		a.TrackNumber == b.TrackNumber &&
		a.DiscNumber == b.DiscNumber &&
		a.Duration == b.Duration &&
		a.ResourceURI == b.ResourceURI &&
		slices.Equal(a.CoverURIs, b.CoverURIs) &&
		a.Rating == b.Rating &&
		a.Genre == b.Genre &&
		a.Composer == b.Composer &&
		a.Lyricist == b.Lyricist
}

// rowLess orders tracks inside an album: disc first, then track number.
func rowLess(a, b *Track) bool {
	if a.DiscNumber != b.DiscNumber {
		return a.DiscNumber < b.DiscNumber
	}
	return a.TrackNumber < b.TrackNumber
}

// Album represents an album and its derived aggregates.
type Album struct {
	ID                uint64        `json:"id"`
	Title             string        `json:"title"`
	AlbumArtist       string        `json:"albumartist"`
	Artist            string        `json:"artist"`
	ArtURI            string        `json:"art,omitempty"`
	TracksCount       int           `json:"trackscount"`
	IsSingleDiscAlbum bool          `json:"singledisc"`
	HighestRating     int           `json:"highestrating"`
	Duration          time.Duration `json:"duration"`
}

// IsValid reports whether the album was found in the index.
func (a Album) IsValid() bool {
	return a.ID != 0
}

// AlbumKey is the identity of an album.
type AlbumKey struct {
	Title  string
	Artist string
}

// Artist represents an artist name referenced by at least one stored track.
type Artist struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	AlbumsCount int    `json:"albumscount"`
}

// IsValid reports whether the artist was found in the index.
func (a Artist) IsValid() bool {
	return a.ID != 0
}

// sortKey folds a name for display ordering.
func sortKey(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}
