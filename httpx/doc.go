// Package httpx provides an HTTP client adapter for onion.
//
// Client runs every request through an onion function, so middleware,
// error hooks and lifecycle hooks apply to outgoing HTTP calls. A
// user-provided classifier maps response status codes to transient or
// permanent errors.
package httpx
