// Package connmgr manages a single, process-wide connection to Redis for use as
// a cache.
//
// Connection parameters are read from the environment. When the host, port, or
// password is missing caching is disabled: a warning is logged, no connection is
// attempted, and the published Handle is nil. Otherwise exactly one go-redis
// client is created, connected eagerly, and shared by every caller. Lifecycle
// events (connect, ready, error, close, reconnecting) are published to Listeners,
// and a SIGTERM hook closes the connection gracefully.
//
//	h := connmgr.Initialize()
//	if !h.Enabled() {
//		// caching disabled, fall back to the source of truth
//	}
//	rdb := connmgr.Client() // nil when caching is disabled
package connmgr
