// Package download fetches release artifacts over HTTP.
//
// Redirects are followed by hand so the hop count can be capped and every hop
// logged. The whole transfer honours the caller's context: cancelling it
// aborts the in-flight request and surfaces a CancelledError rather than a
// NetworkError. Nothing is retried.
package download
