// Package worker wires the stage engines into the executor's worker
// protocol. It runs inside the spawned worker process, never the
// coordinator.
package worker
