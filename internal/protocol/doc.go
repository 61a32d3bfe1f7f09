// Package protocol owns the macro protocol wire contract.
//
// Ownership boundary:
// - request, response and output command message types
// - exception records and their construction from Go errors
// - the descriptor registry used by stream, transport and session layers
// - protocol-level errors
package protocol
