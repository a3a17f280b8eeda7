// Package main hosts the showcopier CLI entrypoint and command graph.
//
// The root command runs a copy task: it selects episodes of the named shows,
// consults the compatibility cache (probing with ffprobe on a miss), and copies
// compatible episodes to the target directory. Subcommands inspect single
// files, maintain the cache, scaffold configuration, and report environment
// health.
//
// Keep this package lean: behaviour belongs in the internal packages and the
// commands here only wire configuration, logging, and output together.
package main
