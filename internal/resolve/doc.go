// Package resolve enriches process records with context that lives outside
// the command line: the working directory of a pid and the container that
// publishes a listening port.
//
// Each source sits behind a narrow lookup interface (CwdLookup,
// ContainerLookup) with one production implementation that shells out
// (lsof, docker) and, for working directories on Linux, one that reads
// procfs directly. The batch resolvers in front of them own a short-lived
// TTL cache and guarantee one external query per batch, regardless of how
// many pids or ports are requested.
//
// Resolvers never return errors. A missing tool, a timeout or unparseable
// output degrades to an empty or partial map, and failed lookups are never
// cached so the next refresh tries again.
package resolve
