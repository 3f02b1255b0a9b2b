// Package runner drives the job loop: claim one pending job, dispatch it to
// the registered handler, then commit the returned bundle or fail the job.
//
// A runner processes one job at a time. Several runners may share a store;
// exclusivity comes from the store's atomic claim, not from any lock here.
// Jobs are never retried. A handler panic, a handler error, and a rejected
// commit all end with the job marked failed and the loop moving on.
package runner
