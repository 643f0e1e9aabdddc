package scanner

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/h2non/filetype"

	"musicindex/internal/library"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".aac":  true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".flac": true,
	".wav":  true,
}

// Never sniffed.
var ignoredExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".txt": true, ".nfo": true, ".cue": true, ".log": true, ".m3u": true, ".m3u8": true,
	".pdf": true, ".sfv": true, ".md5": true, ".db": true, ".ini": true,
}

// isAudioFile accepts known audio extensions and sniffs the content of files
// with any other extension.
func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if audioExtensions[ext] {
		return true
	}
	if ignoredExtensions[ext] {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	return filetype.IsAudio(head[:n])
}

// readTrack parses the tags of an audio file into a track record.
func readTrack(path string) (library.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return library.Track{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return library.Track{}, err
	}

	track, _ := m.Track()
	disc, _ := m.Disc()

	title := m.Title()
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	album := m.Album()
	if album == "" {
		album = "unknown album"
	}

	artist := m.Artist()
	if artist == "" && m.AlbumArtist() == "" {
		artist = "unknown artist"
	}

	t := library.Track{
		Title:       title,
		Artist:      artist,
		AlbumTitle:  album,
		AlbumArtist: m.AlbumArtist(),
		TrackNumber: track,
		DiscNumber:  disc,
		Genre:       m.Genre(),
		Composer:    m.Composer(),
		ResourceURI: path,
	}
	if cover := findAlbumArtwork(filepath.Dir(path)); cover != "" {
		t.CoverURIs = []string{cover}
	}
	return t, nil
}

// findAlbumArtwork looks for cover art in the album directory.
func findAlbumArtwork(dir string) string {
	for _, cover := range []string{"cover.jpg", "cover.png", "folder.jpg", "folder.png"} {
		artPath := filepath.Join(dir, cover)
		if _, err := os.Stat(artPath); err == nil {
			return artPath
		}
	}
	return ""
}

// coversOf maps album titles to their cover. Titles whose tracks point at
// different covers are left out; those tracks still carry their own.
func coversOf(tracks []library.Track) map[string]string {
	covers := make(map[string]string)
	ambiguous := make(map[string]bool)
	for _, t := range tracks {
		if len(t.CoverURIs) == 0 || ambiguous[t.AlbumTitle] {
			continue
		}
		if c, ok := covers[t.AlbumTitle]; ok && c != t.CoverURIs[0] {
			delete(covers, t.AlbumTitle)
			ambiguous[t.AlbumTitle] = true
			continue
		}
		covers[t.AlbumTitle] = t.CoverURIs[0]
	}
	return covers
}
