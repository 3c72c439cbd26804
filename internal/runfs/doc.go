// Package runfs owns the on-disk layout of a pipeline run: the run key
// derived from the source URL, the fixed per-artifact path structure, the
// file-presence completion test, atomic artifact writes, and the per-run
// lock that enforces single-process ownership.
package runfs
