// Package pipeline coordinates one mining run: source fetch, the fixed
// stage sequence with cache short-circuits and skip handling, and the
// journal records that make runs observable after the fact.
package pipeline
