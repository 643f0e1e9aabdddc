// Package playlist sequences library tracks for playback.
package playlist

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"musicindex/internal/library"
)

var ErrInvalidCommand = errors.New("not a valid playlist command")

// Playlist is an ordered list of tracks with a play position. With shuffle
// on, Next and Previous walk a random permutation of the entries. It follows
// the library as a Listener so removed tracks drop out and modified tracks
// are refreshed.
type Playlist struct {
	mu      sync.Mutex
	entries []library.Track
	order   []int
	pos     int
	repeat  bool
	shuffle bool
	rng     *rand.Rand
}

func New(tracks []library.Track) *Playlist {
	p := &Playlist{
		entries: append([]library.Track(nil), tracks...),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	p.resetOrder()
	return p
}

// FromCommand builds a playlist out of search results:
//
//	a   all results in order
//	r   a single random result
//	s   all results, shuffled
//	#   the results starting at the #th one
func FromCommand(cmd string, results []library.Track) (*Playlist, error) {
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if i, err := strconv.Atoi(cmd); err == nil {
		if i < 1 || i > len(results) {
			return nil, fmt.Errorf("enter value from 1 to %d: %w", len(results), ErrInvalidCommand)
		}
		return New(results[i-1:]), nil
	}

	switch cmd {
	case "a", "":
		return New(results), nil
	case "r":
		p := New(nil)
		if len(results) > 0 {
			p = New([]library.Track{results[p.rng.Intn(len(results))]})
		}
		return p, nil
	case "s":
		p := New(results)
		p.SetShuffle(true)
		return p, nil
	default:
		return nil, fmt.Errorf("%q: %w", cmd, ErrInvalidCommand)
	}
}

func (p *Playlist) resetOrder() {
	p.order = make([]int, len(p.entries))
	for i := range p.order {
		p.order[i] = i
	}
	if p.shuffle {
		p.rng.Shuffle(len(p.order), func(i, j int) {
			p.order[i], p.order[j] = p.order[j], p.order[i]
		})
	}
	p.pos = 0
}

func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Entries returns the tracks in insertion order.
func (p *Playlist) Entries() []library.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]library.Track(nil), p.entries...)
}

// Queue returns the tracks in play order.
func (p *Playlist) Queue() []library.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]library.Track, 0, len(p.order))
	for _, i := range p.order {
		out = append(out, p.entries[i])
	}
	return out
}

func (p *Playlist) Append(tracks ...library.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tracks {
		p.entries = append(p.entries, t)
		p.order = append(p.order, len(p.entries)-1)
	}
}

// Current returns the track at the play position.
func (p *Playlist) Current() (library.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current()
}

func (p *Playlist) current() (library.Track, bool) {
	if p.pos < 0 || p.pos >= len(p.order) {
		return library.Track{}, false
	}
	return p.entries[p.order[p.pos]], true
}

// Next advances the play position. Past the last entry it wraps around
// when repeat is on and reports false otherwise.
func (p *Playlist) Next() (library.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return library.Track{}, false
	}
	if p.pos+1 >= len(p.order) {
		if !p.repeat {
			p.pos = len(p.order)
			return library.Track{}, false
		}
		if p.shuffle {
			p.resetOrder()
			return p.current()
		}
		p.pos = 0
		return p.current()
	}
	p.pos++
	return p.current()
}

// Previous steps the play position back, wrapping when repeat is on.
func (p *Playlist) Previous() (library.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return library.Track{}, false
	}
	if p.pos <= 0 {
		if !p.repeat {
			return library.Track{}, false
		}
		p.pos = len(p.order) - 1
		return p.current()
	}
	p.pos = min(p.pos, len(p.order)) - 1
	return p.current()
}

func (p *Playlist) SetRepeat(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = on
}

// SetShuffle switches between insertion order and a random permutation.
// The current track stays current.
func (p *Playlist) SetShuffle(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuffle == on {
		return
	}
	cur := -1
	if p.pos >= 0 && p.pos < len(p.order) {
		cur = p.order[p.pos]
	}
	p.shuffle = on
	p.resetOrder()
	if cur < 0 {
		return
	}
	if !on {
		p.pos = cur
		return
	}
	// Keep playing from the current track.
	for i, e := range p.order {
		if e == cur {
			p.order[0], p.order[i] = p.order[i], p.order[0]
			break
		}
	}
}

// HandleEvent implements library.Listener.
func (p *Playlist) HandleEvent(ev library.Event) {
	switch ev.Type {
	case library.EventTrackRemoved:
		p.remove(ev.Track.ID)
	case library.EventTrackModified:
		p.refresh(ev.Track)
	}
}

func (p *Playlist) refresh(t library.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.entries {
		if p.entries[i].ID == t.ID {
			p.entries[i] = t
		}
	}
}

func (p *Playlist) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < len(p.entries); {
		if p.entries[i].ID != id {
			i++
			continue
		}
		p.entries = append(p.entries[:i], p.entries[i+1:]...)
		order := p.order[:0]
		for j, e := range p.order {
			switch {
			case e == i:
				if j < p.pos {
					p.pos--
				}
				continue
			case e > i:
				e--
			}
			order = append(order, e)
		}
		p.order = order
	}
}
