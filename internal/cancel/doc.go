// Package cancel provides the stage-scoped cancellation token and the stdin
// control listener that arms it. The token stays entirely within the control
// process; cancellation reaches a stage worker by terminating its process,
// never by signalling into it.
package cancel
