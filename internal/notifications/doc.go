// Package notifications publishes job outcome notices.
//
// The default implementation posts to the ntfy topic configured in
// config.toml and degrades to a no-op when no topic is set. Runner code
// depends only on the Service interface.
package notifications
