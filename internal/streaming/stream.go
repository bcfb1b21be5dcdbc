// Package streaming delivers pipeline progress as newline-delimited JSON
// events over an incrementally-flushed transport. A client aborts by closing
// the connection; the server notices on the next write.
package streaming

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"statusgen/internal/errors"
)

// Kind is the event discriminator.
type Kind string

const (
	// KindStart opens the stream.
	KindStart Kind = "start"
	// KindInfo carries a human-readable status line.
	KindInfo Kind = "info"
	// KindWarn carries a non-fatal problem.
	KindWarn Kind = "warn"
	// KindPhase marks a phase starting or ending.
	KindPhase Kind = "phase"
	// KindProgress reports item-level progress within a phase.
	KindProgress Kind = "progress"
	// KindDone carries the final output and closes the stream.
	KindDone Kind = "done"
	// KindError signals a fatal failure and closes the stream.
	KindError Kind = "error"
)

// Event is one NDJSON line. Fields beyond Kind are populated per kind and
// omitted otherwise.
type Event struct {
	Kind Kind `json:"kind"`

	// info / warn
	Message string `json:"message,omitempty"`

	// phase
	Name     string `json:"name,omitempty"`
	Complete bool   `json:"complete,omitempty"`
	Failed   bool   `json:"failed,omitempty"`

	// progress
	Phase   string `json:"phase,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`

	// done
	Output string      `json:"output,omitempty"`
	HTML   string      `json:"html,omitempty"`
	Stats  interface{} `json:"stats,omitempty"`

	// error
	Code       string `json:"code,omitempty"`
	TrackingID string `json:"trackingId,omitempty"`
}

// Writer emits events to an underlying writer, one JSON object per line,
// flushing after every event when the transport supports it. Safe for use
// from a single pipeline run; the mutex guards against interleaved lines
// from the worker-pool progress callbacks.
type Writer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	flush  func()
	closed bool
}

// NewWriter wraps w. When w is an http.ResponseWriter that supports
// flushing, every event is pushed to the client immediately.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		sw.flush = f.Flush
	}
	return sw
}

func (w *Writer) send(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("stream closed")
	}
	if err := w.enc.Encode(ev); err != nil {
		// The client went away; stop writing.
		w.closed = true
		return err
	}
	if w.flush != nil {
		w.flush()
	}
	return nil
}

// Start opens the stream.
func (w *Writer) Start() error {
	return w.send(Event{Kind: KindStart})
}

// Done emits the final output and closes the stream.
func (w *Writer) Done(output, html string, stats interface{}) error {
	err := w.send(Event{Kind: KindDone, Output: output, HTML: html, Stats: stats})
	w.close()
	return err
}

// Error emits the caller-safe rendering of err and closes the stream. The
// internal error text never reaches the client.
func (w *Writer) Error(err error) error {
	se := errors.AsStatus(err)
	sendErr := w.send(Event{
		Kind:       KindError,
		Code:       string(se.Code),
		Message:    errors.PublicMessage(se.Code),
		TrackingID: se.TrackingID,
	})
	w.close()
	return sendErr
}

func (w *Writer) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// PhaseStart implements pipeline.Notifier.
func (w *Writer) PhaseStart(label string) {
	w.send(Event{Kind: KindPhase, Name: label})
}

// PhaseEnd implements pipeline.Notifier.
func (w *Writer) PhaseEnd(label string, failed bool) {
	w.send(Event{Kind: KindPhase, Name: label, Complete: true, Failed: failed})
}

// Progress implements pipeline.Notifier.
func (w *Writer) Progress(label string, current, total int) {
	w.send(Event{Kind: KindProgress, Phase: label, Current: current, Total: total})
}

// Info implements pipeline.Notifier.
func (w *Writer) Info(msg string) {
	w.send(Event{Kind: KindInfo, Message: msg})
}

// Warn implements pipeline.Notifier.
func (w *Writer) Warn(msg string) {
	w.send(Event{Kind: KindWarn, Message: msg})
}
