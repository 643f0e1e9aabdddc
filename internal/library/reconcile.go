package library

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Verifier reads authoritative metadata for a stored track, typically by
// re-reading the tags of its resource.
type Verifier interface {
	Verify(ctx context.Context, stored Track) (Track, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, stored Track) (Track, error)

func (f VerifierFunc) Verify(ctx context.Context, stored Track) (Track, error) {
	return f(ctx, stored)
}

// Modifier applies corrected records. *Index implements it.
type Modifier interface {
	ModifyTracksList(tracks []Track, covers map[string]string, source string) error
}

type reconcileRequest struct {
	id    uuid.UUID
	track Track
}

// Reconciler consumes EventNewTrackFile events and verifies the named
// tracks on its own goroutine. At most one request per resource URI is
// outstanding at a time.
type Reconciler struct {
	target   Modifier
	verifier Verifier
	log      *zap.Logger
	queue    chan reconcileRequest

	mu       sync.Mutex
	inflight map[string]uuid.UUID
}

// NewReconciler creates a reconciler feeding corrections back into target.
// Requests beyond queueSize are dropped.
func NewReconciler(target Modifier, verifier Verifier, queueSize int, log *zap.Logger) *Reconciler {
	if queueSize <= 0 {
		queueSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		target:   target,
		verifier: verifier,
		log:      log,
		queue:    make(chan reconcileRequest, queueSize),
		inflight: make(map[string]uuid.UUID),
	}
}

// HandleEvent implements Listener.
func (r *Reconciler) HandleEvent(ev Event) {
	if ev.Type == EventNewTrackFile {
		r.Post(ev.Track)
	}
}

// Post queues a verification of stored. It reports false when a request for
// the same resource is already outstanding or the queue is full.
func (r *Reconciler) Post(stored Track) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	uri := stored.ResourceURI
	if id, busy := r.inflight[uri]; busy {
		r.log.Debug("reconciliation already pending", zap.String("uri", uri), zap.Stringer("request", id))
		return false
	}

	req := reconcileRequest{id: uuid.New(), track: stored.clone()}
	select {
	case r.queue <- req:
		r.inflight[uri] = req.id
		return true
	default:
		r.log.Warn("reconciliation queue full, dropping request", zap.String("uri", uri))
		return false
	}
}

// Pending returns the number of outstanding requests.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Run processes requests until ctx is done. Requests still queued at that
// point are dropped so their resources can be posted again.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case req := <-r.queue:
			r.process(ctx, req)
		}
	}
}

func (r *Reconciler) drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		select {
		case req := <-r.queue:
			delete(r.inflight, req.track.ResourceURI)
			r.log.Debug("dropping queued reconciliation",
				zap.Stringer("request", req.id), zap.String("uri", req.track.ResourceURI))
		default:
			return
		}
	}
}

func (r *Reconciler) process(ctx context.Context, req reconcileRequest) {
	stored := req.track
	defer r.done(stored.ResourceURI)

	log := r.log.With(zap.Stringer("request", req.id), zap.String("uri", stored.ResourceURI))

	fresh, err := r.verifier.Verify(ctx, stored)
	if err != nil {
		log.Warn("verification failed, keeping stored record", zap.Error(err))
		return
	}
	if fresh.ResourceURI == "" {
		fresh.ResourceURI = stored.ResourceURI
	}
	fresh = normalize(fresh)
	if sameMetadata(stored, fresh) {
		log.Debug("stored record is up to date")
		return
	}

	if err := r.target.ModifyTracksList([]Track{fresh}, nil, ""); err != nil {
		log.Error("failed to apply verified record", zap.Error(err))
		return
	}
	log.Info("track reconciled", zap.String("title", fresh.Title))
}

func (r *Reconciler) done(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, uri)
}
