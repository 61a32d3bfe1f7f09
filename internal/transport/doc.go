// Package transport runs typed object streams over TCP.
//
// Ownership boundary:
// - server accept loop and per-connection supervision
// - client dial with retry backoff
// - connection outcome logging, metrics and observer callbacks
//
// Protocol semantics (request/response, EOF handshake) live in
// internal/protocol/session; transport only guarantees that every stream it
// creates is closed once its handler or client function returns.
package transport
