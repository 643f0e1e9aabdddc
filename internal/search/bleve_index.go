// Package search mirrors the library into a bleve document index.
package search

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"musicindex/internal/library"
	"musicindex/internal/query"
)

const (
	batchSize = 500
	pageSize  = 1000
)

const (
	kindTrack  = "track"
	kindAlbum  = "album"
	kindArtist = "artist"
)

// BleveIndex is a document index over the library. It either mirrors the
// tracks of another store through HandleEvent, or persists the whole
// library itself as a library.Store.
type BleveIndex struct {
	index bleve.Index
	log   *zap.Logger
	// page bounds the hits fetched per search request.
	page int
}

var _ library.Store = (*BleveIndex)(nil)

// document is the indexed form of a track. Record holds the full track and
// is stored but not searchable.
type document struct {
	Kind        string `json:"kind"`
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	AlbumArtist string `json:"albumartist"`
	Album       string `json:"album"`
	TrackNumber int    `json:"tracknumber"`
	DiscNumber  int    `json:"discnumber"`
	Genre       string `json:"genre"`
	Composer    string `json:"composer"`
	Path        string `json:"path"`
	Source      string `json:"source"`
	Record      string `json:"record"`
}

// entity stores albums and artists when the index persists the library.
type entity struct {
	Kind   string `json:"kind"`
	Record string `json:"record"`
}

func New(log *zap.Logger) *BleveIndex {
	if log == nil {
		log = zap.NewNop()
	}
	return &BleveIndex{log: log, page: pageSize}
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	kind := bleve.NewKeywordFieldMapping()
	kind.IncludeInAll = false
	im.DefaultMapping.AddFieldMappingsAt("kind", kind)

	record := bleve.NewTextFieldMapping()
	record.Index = false
	record.Store = true
	record.IncludeInAll = false
	record.IncludeTermVectors = false
	record.DocValues = false
	im.DefaultMapping.AddFieldMappingsAt("record", record)
	return im
}

// IndexPath maps a database path to the sibling .bleve directory.
func IndexPath(database string) string {
	return strings.TrimSuffix(database, ".sqlite") + ".bleve"
}

// Initialize opens the index next to the database at path, creating it when
// missing.
func (b *BleveIndex) Initialize(path string) error {
	path = IndexPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		index, err := bleve.New(path, newMapping())
		if err != nil {
			return err
		}
		b.index = index
		return nil
	}
	index, err := bleve.Open(path)
	if err != nil {
		return err
	}
	b.index = index
	return nil
}

// InitializeInMemory opens a volatile index.
func (b *BleveIndex) InitializeInMemory() error {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return err
	}
	b.index = index
	return nil
}

func (b *BleveIndex) Close() error {
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// Clear deletes every document.
func (b *BleveIndex) Clear() error {
	var ids []string
	err := b.each(bleve.NewMatchAllQuery(), nil, nil, func(hit hitFields) error {
		ids = append(ids, hit.id)
		return nil
	})
	if err != nil {
		return err
	}
	for i := 0; i < len(ids); i += batchSize {
		batch := b.index.NewBatch()
		for _, id := range ids[i:min(i+batchSize, len(ids))] {
			batch.Delete(id)
		}
		if err := b.index.Batch(batch); err != nil {
			return err
		}
	}
	return nil
}

// HandleEvent implements library.Listener.
func (b *BleveIndex) HandleEvent(ev library.Event) {
	var err error
	switch ev.Type {
	case library.EventTrackAdded, library.EventTrackModified:
		var doc document
		if doc, err = toDocument(ev.Track); err == nil {
			err = b.index.Index(docID(ev.Track.ID), doc)
		}
	case library.EventTrackRemoved:
		err = b.index.Delete(docID(ev.Track.ID))
	default:
		return
	}
	if err != nil {
		b.log.Warn("failed to update search index",
			zap.Stringer("event", ev.Type), zap.Uint64("track", ev.Track.ID), zap.Error(err))
	}
}

// Rebuild replaces the index content with tracks.
func (b *BleveIndex) Rebuild(tracks []library.Track) error {
	if err := b.Clear(); err != nil {
		return err
	}
	for i := 0; i < len(tracks); i += batchSize {
		batch := b.index.NewBatch()
		for _, t := range tracks[i:min(i+batchSize, len(tracks))] {
			doc, err := toDocument(t)
			if err != nil {
				return err
			}
			if err := batch.Index(docID(t.ID), doc); err != nil {
				return err
			}
		}
		if err := b.index.Batch(batch); err != nil {
			return err
		}
	}
	b.log.Debug("search index rebuilt", zap.Int("tracks", len(tracks)))
	return nil
}

// Load implements library.Store.
func (b *BleveIndex) Load() (*library.Snapshot, error) {
	snap := &library.Snapshot{}
	err := b.each(bleve.NewMatchAllQuery(), nil, []string{"kind", "record"}, func(hit hitFields) error {
		var err error
		switch hit.str("kind") {
		case kindTrack:
			var t library.Track
			if err = json.Unmarshal([]byte(hit.str("record")), &t); err == nil {
				snap.Tracks = append(snap.Tracks, t)
			}
		case kindAlbum:
			var a library.Album
			if err = json.Unmarshal([]byte(hit.str("record")), &a); err == nil {
				snap.Albums = append(snap.Albums, a)
			}
		case kindArtist:
			var a library.Artist
			if err = json.Unmarshal([]byte(hit.str("record")), &a); err == nil {
				snap.Artists = append(snap.Artists, a)
			}
		}
		if err != nil {
			return fmt.Errorf("decoding document %s: %w", hit.id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Apply implements library.Store. The change set is written as one batch.
func (b *BleveIndex) Apply(cs *library.Changeset) error {
	batch := b.index.NewBatch()
	for _, id := range cs.RemovedTracks {
		batch.Delete(docID(id))
	}
	for _, id := range cs.RemovedAlbums {
		batch.Delete(kindAlbum + ":" + strconv.FormatUint(id, 10))
	}
	for _, id := range cs.RemovedArtists {
		batch.Delete(kindArtist + ":" + strconv.FormatUint(id, 10))
	}

	for _, t := range cs.Tracks {
		doc, err := toDocument(t)
		if err != nil {
			return err
		}
		if err := batch.Index(docID(t.ID), doc); err != nil {
			return err
		}
	}
	for _, a := range cs.Albums {
		if err := indexEntity(batch, kindAlbum, a.ID, a); err != nil {
			return err
		}
	}
	for _, a := range cs.Artists {
		if err := indexEntity(batch, kindArtist, a.ID, a); err != nil {
			return err
		}
	}
	return b.index.Batch(batch)
}

func indexEntity(batch *bleve.Batch, kind string, id uint64, v interface{}) error {
	record, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return batch.Index(kind+":"+strconv.FormatUint(id, 10), entity{Kind: kind, Record: string(record)})
}

// Count returns the number of indexed tracks.
func (b *BleveIndex) Count() (int, error) {
	req := bleve.NewSearchRequestOptions(tracksOnly(bleve.NewMatchAllQuery()), 0, 0, false)
	res, err := b.index.Search(req)
	if err != nil {
		return 0, err
	}
	return int(res.Total), nil
}

func (b *BleveIndex) ResourceURIs() ([]string, error) {
	var uris []string
	err := b.each(tracksOnly(bleve.NewMatchAllQuery()), nil, []string{"path"}, func(hit hitFields) error {
		if p := hit.str("path"); p != "" {
			uris = append(uris, p)
		}
		return nil
	})
	return uris, err
}

// Search accepts SMJ7 input or, when the input carries no SMJ7 markers, a
// bleve query string such as "title:love~2".
func (b *BleveIndex) Search(input string) ([]library.Track, error) {
	if strings.TrimSpace(input) == "" {
		return b.runQuery(bleve.NewMatchAllQuery())
	}
	if query.IsSMJ7(input) {
		return b.runQuery(smj7Query(query.Parse(input)))
	}
	return b.runQuery(bleve.NewQueryStringQuery(input))
}

var fields = map[query.Field][]string{
	query.Genre:  {"genre"},
	query.Artist: {"artist", "albumartist"},
	query.Album:  {"album"},
	query.Title:  {"title"},
}

func smj7Query(q query.Query) bleveQuery.Query {
	if q.IsEmpty() {
		return bleve.NewMatchAllQuery()
	}
	root := bleve.NewBooleanQuery()
	for _, g := range q.Groups() {
		group := bleve.NewBooleanQuery()
		for _, term := range g.Terms {
			for _, f := range g.Fields {
				for _, name := range fields[f] {
					mq := bleve.NewMatchQuery(term)
					mq.SetField(name)
					group.AddShould(mq)
				}
			}
		}
		root.AddMust(group)
	}
	return root
}

// tracksOnly restricts q to track documents.
func tracksOnly(q bleveQuery.Query) bleveQuery.Query {
	kind := bleve.NewTermQuery(kindTrack)
	kind.SetField("kind")
	return bleve.NewConjunctionQuery(kind, q)
}

func (b *BleveIndex) runQuery(q bleveQuery.Query) ([]library.Track, error) {
	var results []library.Track
	order := []string{"albumartist", "album", "discnumber", "tracknumber"}
	err := b.each(tracksOnly(q), order, []string{"record"}, func(hit hitFields) error {
		var t library.Track
		if err := json.Unmarshal([]byte(hit.str("record")), &t); err != nil {
			return fmt.Errorf("decoding document %s: %w", hit.id, err)
		}
		results = append(results, t)
		return nil
	})
	return results, err
}

type hitFields struct {
	id     string
	fields map[string]interface{}
}

func (h hitFields) str(name string) string {
	s, _ := h.fields[name].(string)
	return s
}

// each visits every hit of q in order, paging with search-after. The
// document id is always the last sort key so pages never overlap.
func (b *BleveIndex) each(q bleveQuery.Query, order, fields []string, fn func(hitFields) error) error {
	sortBy := append(append([]string(nil), order...), "_id")
	var after []string
	for {
		req := bleve.NewSearchRequestOptions(q, b.page, 0, false)
		req.Fields = fields
		req.SortBy(sortBy)
		if after != nil {
			req.SetSearchAfter(after)
		}

		res, err := b.index.Search(req)
		if err != nil {
			return err
		}
		for _, hit := range res.Hits {
			if err := fn(hitFields{id: hit.ID, fields: hit.Fields}); err != nil {
				return err
			}
		}
		if len(res.Hits) < b.page {
			return nil
		}
		after = res.Hits[len(res.Hits)-1].Sort
	}
}

func docID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func toDocument(t library.Track) (document, error) {
	record, err := json.Marshal(t)
	if err != nil {
		return document{}, err
	}
	return document{
		Kind:        kindTrack,
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		AlbumArtist: t.AlbumArtist,
		Album:       t.AlbumTitle,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.DiscNumber,
		Genre:       t.Genre,
		Composer:    t.Composer,
		Path:        t.ResourceURI,
		Source:      t.Source,
		Record:      string(record),
	}, nil
}
