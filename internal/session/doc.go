// Package session binds protocol sessions to transports and servers.
//
// A Registry keeps one Binding per session id. Requests carrying an id the
// registry does not know, because it was never issued here or because the
// process that issued it was recycled, get a fresh binding that adopts the
// supplied id, so clients survive restarts without re-initializing.
//
// Creation for a given id is atomic. Concurrent first requests share one
// binding rather than leaving an orphaned transport behind.
package session
