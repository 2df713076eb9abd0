package streaming

import (
	"sync"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
)

// Options tunes how a command streams.
type Options struct {
	// ReportProgress enables progress chunks. On by default.
	ReportProgress bool

	// ProgressInterval is the minimum gap between progress chunks.
	// Extra updates inside the window are dropped.
	ProgressInterval time.Duration

	// EmitPartialData enables data chunks. Off by default: most
	// consumers only want progress plus the final payload.
	EmitPartialData bool

	// BufferSize is the chunk channel capacity.
	BufferSize int
}

// DefaultOptions mirrors the defaults consumers expect when a command
// is invoked without stream options.
func DefaultOptions() Options {
	return Options{
		ReportProgress:   true,
		ProgressInterval: 100 * time.Millisecond,
		BufferSize:       16,
	}
}

// Emitter is the producer side of a stream. Handlers send through it;
// the channel from Chunks is handed to the consumer. Safe for
// concurrent use.
type Emitter struct {
	opts Options
	ch   chan Chunk

	mu           sync.Mutex
	lastProgress time.Time
	sequence     int
	started      time.Time
	closed       bool
}

// NewEmitter creates an emitter with the given options.
func NewEmitter(opts Options) *Emitter {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 16
	}
	return &Emitter{
		opts:    opts,
		ch:      make(chan Chunk, opts.BufferSize),
		started: time.Now(),
	}
}

// Chunks returns the consumer side of the stream.
func (e *Emitter) Chunks() <-chan Chunk {
	return e.ch
}

// Progress emits a progress chunk, throttled to the configured
// interval. Returns false when the update was dropped.
func (e *Emitter) Progress(progress float64, message string) bool {
	if !e.opts.ReportProgress {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	now := time.Now()
	if !e.lastProgress.IsZero() && now.Sub(e.lastProgress) < e.opts.ProgressInterval {
		return false
	}
	e.lastProgress = now
	e.ch <- Progress(progress, message)
	return true
}

// Data emits a partial data chunk with the next sequence number.
func (e *Emitter) Data(data any) bool {
	if !e.opts.EmitPartialData {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.sequence++
	chunk := Data(data, false)
	chunk.Sequence = e.sequence
	e.ch <- chunk
	return true
}

// Complete terminates the stream successfully and closes the channel.
func (e *Emitter) Complete(data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.ch <- Complete(data, float64(time.Since(e.started).Microseconds())/1000.0)
	close(e.ch)
}

// Error terminates the stream with a failure and closes the channel.
func (e *Emitter) Error(err *command.CommandError, recoverable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.ch <- Error(err, recoverable)
	close(e.ch)
}
