// Command miner drives the media mining pipeline from the command line.
//
// The run subcommand downloads a source video and executes the enrichment
// stages in worker processes, emitting machine-parseable PRG lines on
// stdout for a supervising UI. sync pushes finished artifacts into the
// catalog, show reads the run journal, and the hidden worker subcommand
// is the stage child-process entry point.
package main
