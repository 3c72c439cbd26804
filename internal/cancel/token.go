package cancel

import "sync/atomic"

// Token is the single shared flag between the cancellation listener and the
// pipeline control thread. The listener sets it; the control thread reads
// and clears it. It is scoped to the currently executing stage: the
// coordinator clears it immediately before each stage starts, so a skip
// command never bleeds into later stages.
type Token struct {
	flag atomic.Bool
}

// Set requests cancellation of the active stage.
func (t *Token) Set() {
	t.flag.Store(true)
}

// Clear re-arms the token before a new stage starts.
func (t *Token) Clear() {
	t.flag.Store(false)
}

// Requested reports whether cancellation has been requested.
func (t *Token) Requested() bool {
	return t.flag.Load()
}
