// Package session owns the macro protocol adapters on both ends of a
// connection.
//
// Ownership boundary:
// - server peer handler driving a Service per connection
// - client adapter exposing Generate and the EOF close handshake
// - request metrics
//
// The server reads a request, answers it and repeats until the client
// half-closes, then answers with its own half-close. An unrecognized request
// gets an Error response and the connection stays open.
package session
