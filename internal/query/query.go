// Package query parses SMJ7-style search input.
//
// Parameters are comma-separated. Like-type parameters are ORed together and
// unlike-type parameters are ANDed:
//
//	!genre  @artist  #album  $title  plain
//
// A plain parameter matches artist, album or title. Matching is
// case-insensitive and partial.
package query

import (
	"strings"
)

// Field identifies a searchable track attribute.
type Field string

const (
	Genre  Field = "genre"
	Artist Field = "artist"
	Album  Field = "album"
	Title  Field = "title"
)

// AnyFields are the attributes a plain parameter is matched against.
var AnyFields = []Field{Artist, Album, Title}

// Query is a parsed SMJ7 search.
type Query struct {
	Genres  []string
	Artists []string
	Albums  []string
	Titles  []string
	// Terms match any of AnyFields.
	Terms []string
}

// Parse splits input into its parameter groups. Empty parameters are skipped.
func Parse(input string) Query {
	var q Query
	for _, word := range strings.Split(input, ",") {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		switch word[0] {
		case '!':
			q.Genres = appendTerm(q.Genres, word[1:])
		case '@':
			q.Artists = appendTerm(q.Artists, word[1:])
		case '#':
			q.Albums = appendTerm(q.Albums, word[1:])
		case '$':
			q.Titles = appendTerm(q.Titles, word[1:])
		default:
			q.Terms = append(q.Terms, word)
		}
	}
	return q
}

func appendTerm(terms []string, term string) []string {
	if term = strings.TrimSpace(term); term != "" {
		terms = append(terms, term)
	}
	return terms
}

// IsSMJ7 reports whether input uses SMJ7 prefixes or separators.
func IsSMJ7(input string) bool {
	return strings.ContainsAny(input, "!@#$,")
}

// IsEmpty reports whether the query matches everything.
func (q Query) IsEmpty() bool {
	return len(q.Genres) == 0 && len(q.Artists) == 0 && len(q.Albums) == 0 &&
		len(q.Titles) == 0 && len(q.Terms) == 0
}

// Group is one ANDed clause: a value matches when any term is contained in
// any of the fields.
type Group struct {
	Fields []Field
	Terms  []string
}

// Groups returns the non-empty clauses of q in a fixed order.
func (q Query) Groups() []Group {
	var groups []Group
	add := func(terms []string, fields ...Field) {
		if len(terms) > 0 {
			groups = append(groups, Group{Fields: fields, Terms: terms})
		}
	}
	add(q.Genres, Genre)
	add(q.Artists, Artist)
	add(q.Albums, Album)
	add(q.Titles, Title)
	add(q.Terms, AnyFields...)
	return groups
}

// SplitCommand separates a trailing playlist command from a query given as
// "query; command". The command defaults to "a".
func SplitCommand(input string) (string, string) {
	q, cmd, found := strings.Cut(input, ";")
	if !found {
		return input, "a"
	}
	return strings.TrimSpace(q), strings.TrimSpace(cmd)
}

// SyntaxGuide documents the query language.
const SyntaxGuide = `
# SMJ7-Style Syntax

You can combine multiple parameters; like-type parameters will be logically ORed and
unlike-type parameters will be logically ANDed together.

!<some string>                      - Search for genres matching the string
@<some string>                      - Search for artists matching the string
#<some string>                      - Search for albums matching the string
$<some string>                      - Search for tracks matching the string
<some string>                       - Search for artists, albums, or tracks matching the string

## Combinations

Parameters are comma-separated. All strings are searched case-insensitively and match on
partial hits.

@artist1, @artist2                  - Any songs by either artist1 or artist2
@artist1, #album1                   - Albums matching "album1" by artists matching "artist1"
something1                          - Anything matching "something1", in any field
something1, $track1                 - Tracks matching "track1" that have "something1" related to them

## Examples

@mingus, @coltrane, @brubeck        - Assorted jazz tracks by these 3 artists
@rolling stones, #greatest          - "Greatest Hits" by "The Rolling Stones"
@decemberists, #live, $infanta      - The live version of "Infanta" by "The Decemberists"

## Playlist post-commands

Append a semicolon ";" to your query and follow it with one of:

#                                   - Play from the #th song
a                                   - Play all matching songs
r                                   - Play a single, random matching song
s                                   - Play all matching songs, shuffled

    musicindex play "@rolling stones, #greatest; a"
    musicindex play "@decemberists, #live; s"

# Bleve Backend Features

With backend = "bleve", input without SMJ7 markers is a bleve query string:

title:love~2                       - Fuzzy match title for "love" with edit distance 2
+artist:queen -title:live          - Must be Queen, must not be "live"
`
