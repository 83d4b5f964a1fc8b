package audit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/clubops/admingate/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recorder writes audit events through a buffered channel drained by a
// single goroutine, so recording never blocks a request path. Writes are
// best-effort: a failed insert is logged and dropped, never surfaced.
type Recorder struct {
	db      *gorm.DB
	logger  *logging.Service
	ch      chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	closed  atomic.Bool
}

const defaultBufferSize = 256

func NewRecorder(db *gorm.DB, logger *logging.Service) *Recorder {
	r := &Recorder{
		db:     db,
		logger: logger,
		ch:     make(chan Event, defaultBufferSize),
		done:   make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Record enqueues an event. If the buffer is full the event is dropped
// and counted; audit must never apply backpressure to the primary flow.
func (r *Recorder) Record(event Event) {
	if r == nil || r.closed.Load() {
		return
	}

	event.ID = uuid.NewString()
	event.CreatedAt = time.Now()

	select {
	case r.ch <- event:
	default:
		r.dropped.Add(1)
		r.logger.Warn("audit buffer full, event dropped",
			zap.String("action", string(event.Action)),
			zap.Uint64("dropped_total", r.dropped.Load()))
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops intake and drains remaining events.
func (r *Recorder) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	close(r.done)
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.ch:
			r.persist(event)
		case <-r.done:
			for {
				select {
				case event := <-r.ch:
					r.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(event Event) {
	if err := r.db.Create(&event).Error; err != nil {
		r.logger.Error("failed to persist audit event",
			zap.Error(err),
			zap.String("action", string(event.Action)),
			zap.String("outcome", string(event.Outcome)))
	}
}
