// Package daemonctl starts and stops a detached studyforged process.
//
// The daemon's flock lock is the source of truth for "running"; the pid file
// it writes after acquiring the lock is used only to deliver signals.
package daemonctl
