// Package copier runs a copy task: it walks the selected shows, resolves a
// compatibility verdict for each episode (cached or freshly probed), and
// copies compatible episodes into the target directory until the requested
// count is reached.
//
// Every freshly probed verdict is written to the cache and flushed right
// away, so an interrupted run keeps everything it has learned so far. A
// failed flush is logged and counted but does not stop copying; Run reports
// it once the task is over.
package copier
