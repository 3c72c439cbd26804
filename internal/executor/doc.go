// Package executor isolates stage computations in worker processes. The
// parent streams the worker's protocol lines, polls the skip token on a
// short interval, and terminates the worker immediately when a skip
// arrives. Results come back over a dedicated pipe so stdout stays free
// for the progress protocol.
package executor
