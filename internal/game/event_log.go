package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	EventBufferSize       = 1024                   // Ring buffer size
	MaxEventsPerSec       = 2000                   // Global rate limit
	MaxEventsPerSubject   = 100                    // Per-subject rate limit per second
	BatchFlushSize        = 64                     // Events per batch write
	BatchFlushInterval    = 100 * time.Millisecond // How often to flush
	SubjectLimiterCleanup = 5 * time.Minute        // Cleanup interval for subject limiters
)

// EventLog is a bounded, rate-limited, append-only JSONL audit log.
//
// Emit is called from the simulation goroutine only; a background writer
// drains the ring buffer to disk in batches.
type EventLog struct {
	// Ring buffer (single producer, single consumer)
	buffer    [EventBufferSize]Event
	writeHead uint64 // atomic - next sequence to publish
	readHead  uint64 // atomic - next sequence to drain

	// Rate limiting so a runaway entity cannot flood the disk
	globalLimiter   *rate.Limiter
	subjectLimiters sync.Map // map[string]*subjectLimiterEntry

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// File output
	filePath string
	file     *os.File
	out      *bufio.Writer
	fileMu   sync.Mutex

	log *zap.Logger

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
	writtenCount uint64 // atomic
}

// subjectLimiterEntry tracks per-subject rate limiting
type subjectLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog(log *zap.Logger) *EventLog {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
		log:           log,
	}
}

// Start begins the async writer goroutines. An empty path keeps events in
// memory only (they are counted and then discarded).
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		el.file = file
		el.out = bufio.NewWriter(file)
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	el.log.Info("event log started", zap.String("path", filePath))
	return nil
}

// Stop flushes what is buffered and closes the file
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		if !el.running.Swap(false) {
			return
		}
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			if err := el.out.Flush(); err != nil {
				el.log.Warn("event log flush failed", zap.Error(err))
			}
			if err := el.file.Close(); err != nil {
				el.log.Warn("event log close failed", zap.Error(err))
			}
		}
		el.fileMu.Unlock()
	})
}

// Emit queues an event. It returns false if the log is stopped, the event
// was rate limited, or the buffer is full.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	if event.Subject != "" {
		if !el.subjectLimiter(event.Subject).Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)
	if head-tail >= EventBufferSize {
		// writer is behind: shed load rather than block the tick
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	event.Sequence = head + 1
	el.buffer[head%EventBufferSize] = event
	atomic.StoreUint64(&el.writeHead, head+1)

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and queues an event
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, sessionID, subject string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, sessionID, subject, payload))
}

// subjectLimiter returns/creates a per-subject rate limiter
func (el *EventLog) subjectLimiter(subject string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.subjectLimiters.Load(subject); ok {
		e := v.(*subjectLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &subjectLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerSubject, MaxEventsPerSubject/10),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.subjectLimiters.LoadOrStore(subject, entry)
	return actual.(*subjectLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// drain everything that is left
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale subject limiters to prevent unbounded growth
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SubjectLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSubjectLimiters(time.Now().Add(-SubjectLimiterCleanup))
		}
	}
}

// cleanupSubjectLimiters removes limiters unused since cutoff
func (el *EventLog) cleanupSubjectLimiters(cutoff time.Time) int {
	removed := 0
	el.subjectLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*subjectLimiterEntry)
		if entry.lastUsed.Load() < cutoff.UnixNano() {
			el.subjectLimiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// collectBatch reads published events from the ring buffer
func (el *EventLog) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		batch = append(batch, el.buffer[i%EventBufferSize])
	}

	if len(batch) > 0 {
		atomic.StoreUint64(&el.readHead, tail+uint64(len(batch)))
	}
	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		atomic.AddUint64(&el.writtenCount, uint64(len(batch)))
		return
	}

	enc := json.NewEncoder(el.out)
	for i := range batch {
		if err := enc.Encode(&batch[i]); err != nil {
			el.log.Warn("event encode failed", zap.Stringer("type", batch[i].Type), zap.Error(err))
			continue
		}
		atomic.AddUint64(&el.writtenCount, 1)
	}
	if err := el.out.Flush(); err != nil {
		el.log.Warn("event log write failed", zap.String("path", el.filePath), zap.Error(err))
	}
}

// EventLogStats is a point-in-time view of the log counters
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// Stats returns counters for monitoring
func (el *EventLog) Stats() EventLogStats {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	return EventLogStats{
		Total:   atomic.LoadUint64(&el.totalCount),
		Dropped: atomic.LoadUint64(&el.droppedCount),
		Written: atomic.LoadUint64(&el.writtenCount),
		Pending: head - tail,
		Running: el.running.Load(),
	}
}
