// Package daemon owns the lifecycle of the long-running worker process.
//
// It holds a flock on the data directory so only one daemon drives a given
// store at a time, starts and stops the job runner, and reports combined
// runner and store status. Job processing itself lives in the runner and
// handler packages.
package daemon
