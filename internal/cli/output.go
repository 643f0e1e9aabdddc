package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"musicindex/internal/library"
)

// jsonizer renders results as an artist > album > tracks hierarchy.
func jsonizer(results []library.Track, showPaths bool, indent int) (string, error) {
	type AlbumMap map[string][]interface{}
	type ArtistMap map[string]AlbumMap

	hierarchy := make(ArtistMap)
	for _, t := range results {
		artist := displayArtist(t)
		if _, ok := hierarchy[artist]; !ok {
			hierarchy[artist] = make(AlbumMap)
		}

		var track interface{}
		if showPaths {
			track = map[string]string{"title": t.Title, "path": t.ResourceURI}
		} else {
			track = t.Title
		}
		hierarchy[artist][t.AlbumTitle] = append(hierarchy[artist][t.AlbumTitle], track)
	}

	var b []byte
	var err error
	if indent > 0 {
		b, err = json.MarshalIndent(hierarchy, "", strings.Repeat(" ", indent))
	} else {
		b, err = json.Marshal(hierarchy)
	}
	return string(b), err
}

// displayArtist prefers the album artist so compilations list together.
func displayArtist(t library.Track) string {
	if t.AlbumArtist != "" {
		return t.AlbumArtist
	}
	return t.Artist
}

// printResults lists numbered results grouped by artist and album.
func printResults(w io.Writer, results []library.Track) {
	var lastArtist, lastAlbum string
	width := int(math.Log10(float64(len(results)))) + 1
	for i, r := range results {
		iStr := fmt.Sprintf("[ %*d ]", width, i+1)
		artist := displayArtist(r)

		if lastArtist != artist {
			fmt.Fprintf(w, "\n %s\n%s\n", artist, strings.Repeat("=", len(artist)))
			fmt.Fprintf(w, "\n  %s\n   %s\n", r.AlbumTitle, strings.Repeat("-", len(r.AlbumTitle)))
		} else if lastAlbum != r.AlbumTitle {
			fmt.Fprintf(w, "\n  %s\n   %s\n", r.AlbumTitle, strings.Repeat("-", len(r.AlbumTitle)))
		}
		fmt.Fprintf(w, "    %s %s\n", iStr, r.Title)
		lastArtist = artist
		lastAlbum = r.AlbumTitle
	}
}

func commatize(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var res []string
	for len(s) > 3 {
		res = append(res, s[len(s)-3:])
		s = s[:len(s)-3]
	}
	res = append(res, s)
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return strings.Join(res, ",")
}

// Table provides a simple table formatter.
type Table struct {
	w *tabwriter.Writer
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	t := &Table{w: tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)}
	if len(headers) > 0 {
		t.Row(headers...)
	}
	return t
}

// Row adds a row to the table.
func (t *Table) Row(values ...string) {
	_, _ = t.w.Write([]byte(strings.Join(values, "\t") + "\n"))
}

// Flush writes the table output.
func (t *Table) Flush() {
	_ = t.w.Flush()
}
