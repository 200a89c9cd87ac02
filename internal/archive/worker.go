package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
)

type (
	// Store is the cold-storage backend for terminated sessions
	Store interface {
		Get(context.Context, api.SessionID) (*api.SessionArchive, error)
		Put(context.Context, *api.SessionArchive) error
		Delete(context.Context, api.SessionID) error
		Close() error
	}

	// Purger removes a session's hot-store data once it is archived
	Purger interface {
		DeleteSession(context.Context, api.SessionID) error
	}

	// Worker moves terminated sessions to cold storage off the dispatch
	// path. Records queue in memory and flush on an interval; a failed
	// write stays queued for the next flush
	Worker struct {
		store    Store
		purger   Purger
		interval time.Duration
		queue    chan *api.SessionArchive
		pending  []*api.SessionArchive
		ctx      context.Context
		cancel   context.CancelFunc
		wg       sync.WaitGroup
	}
)

const queueDepth = 256

// NewWorker creates an archive worker. The purger may be nil, in which
// case hot-store session data is left in place after archival
func NewWorker(store Store, purger Purger, interval time.Duration) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:    store,
		purger:   purger,
		interval: interval,
		queue:    make(chan *api.SessionArchive, queueDepth),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Enqueue hands a terminated session to the worker. Test sessions are
// never archived. A full queue drops the record rather than blocking
// dispatch
func (w *Worker) Enqueue(rec *api.SessionArchive) {
	if rec == nil || rec.Session == nil || rec.Session.IsTest {
		return
	}
	select {
	case w.queue <- rec:
	default:
		slog.Warn("Archive queue full, dropping record",
			log.SessionID(rec.Session.ID))
	}
}

// Start launches the background flush loop
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop flushes the remaining queue and shuts the worker down
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case rec := <-w.queue:
			w.pending = append(w.pending, rec)
		case <-ticker.C:
			w.flush(w.ctx)
		case <-w.ctx.Done():
			w.drain()
			w.flush(context.Background())
			return
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case rec := <-w.queue:
			w.pending = append(w.pending, rec)
		default:
			return
		}
	}
}

func (w *Worker) flush(ctx context.Context) {
	var failed []*api.SessionArchive
	for _, rec := range w.pending {
		if err := w.store.Put(ctx, rec); err != nil {
			slog.Warn("Failed to archive session",
				log.SessionID(rec.Session.ID), log.Error(err))
			failed = append(failed, rec)
			continue
		}
		w.purge(ctx, rec.Session.ID)
	}
	w.pending = failed
}

func (w *Worker) purge(ctx context.Context, id api.SessionID) {
	if w.purger == nil {
		return
	}
	if err := w.purger.DeleteSession(ctx, id); err != nil {
		slog.Warn("Failed to purge archived session",
			log.SessionID(id), log.Error(err))
	}
}
