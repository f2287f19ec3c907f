// Package dashboard renders live relay and metrics state: a raw-mode terminal
// view for the operator and an optional HTTP surface (health, snapshot,
// prometheus scrape, websocket feed) for everything else.
package dashboard
