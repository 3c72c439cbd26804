package progress

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Prefix marks a machine-parseable progress line.
const Prefix = "PRG:"

// SkipAckLine acknowledges a cancelled stage.
const SkipAckLine = "SKIP_ACK"

// Reporter serializes progress events onto a single output stream. The
// stream is the only contractually parseable channel for execution state, so
// every write goes through one mutex-guarded path.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewReporter wraps the given writer, usually os.Stdout.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Status emits a free-text phase marker such as "Initializing..." or "Cached".
func (r *Reporter) Status(label, status string, total int) {
	r.emit(fmt.Sprintf("%s%s:%s:%d", Prefix, label, status, total))
}

// Percent emits a numeric (current, total) pair. Percentages within a stage
// are expected to be non-decreasing, but resets to zero at internal phase
// boundaries are legal and must be tolerated by consumers.
func (r *Reporter) Percent(label string, current, total int) {
	r.emit(fmt.Sprintf("%s%s:%d:%d", Prefix, label, current, total))
}

// Initializing marks the start of a stage.
func (r *Reporter) Initializing(label string) {
	r.Status(label, "Initializing...", 0)
}

// Cached marks a stage skipped because its artifact already exists.
func (r *Reporter) Cached(label string) {
	r.Status(label, "Cached", 100)
}

// Completed marks a stage finished with a full progress bar.
func (r *Reporter) Completed(label string) {
	r.Percent(label, 100, 100)
}

// SkipAck confirms that a cancellation request terminated the active stage.
func (r *Reporter) SkipAck() {
	r.emit(SkipAckLine)
}

// Raw forwards an already-formatted protocol line. Lines that are not part
// of the protocol are dropped so stray worker output cannot corrupt the
// stream.
func (r *Reporter) Raw(line string) {
	line = strings.TrimSpace(line)
	if line != SkipAckLine && !strings.HasPrefix(line, Prefix) {
		return
	}
	r.emit(line)
}

func (r *Reporter) emit(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, line)
}

// Event is a parsed progress line.
type Event struct {
	Label   string
	Status  string
	Current int
	Total   int
	Numeric bool
}

// Parse decodes a PRG line. It returns false for anything that is not part
// of the protocol.
func Parse(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, Prefix) {
		return Event{}, false
	}
	payload := strings.TrimPrefix(line, Prefix)
	parts := strings.Split(payload, ":")
	if len(parts) < 3 {
		return Event{}, false
	}
	total, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return Event{}, false
	}
	label := strings.TrimSpace(parts[0])
	body := strings.Join(parts[1:len(parts)-1], ":")

	event := Event{Label: label, Total: total}
	if current, err := strconv.Atoi(strings.TrimSpace(body)); err == nil {
		event.Current = current
		event.Numeric = true
		return event, true
	}
	event.Status = strings.TrimSpace(body)
	return event, true
}
