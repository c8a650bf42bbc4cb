// Package identify turns raw process records into short display labels such
// as "docker:web-app", "next:shop" or "Warp Helper (GPU)".
//
// # Resolution order
//
// For each ProcessQuery the Engine tries, in order:
//
//  1. A container publishing the query's port, labelled "docker:<name>".
//  2. The ordered rule list (see DefaultRules), given the working directory
//     and a project name inferred from it and from the command line.
//  3. The executable basename, category system.
//
// # Caching
//
// Results are cached per key "pid:port:command-prefix" for a TTL with LRU
// eviction. Concurrent misses on the same key share one resolution through
// an in-flight registry. IdentifyBatch fetches the working directories and
// containers for every miss up front, one resolver call each, before any
// rule runs.
//
// # Errors
//
// Nothing in this package returns an error to callers. Resolver failures
// surface only as less specific labels.
package identify
