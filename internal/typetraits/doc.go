// Package typetraits owns the typed-value descriptor framework.
//
// A Descriptor[T] bundles everything the wire protocol needs to know about a
// value type: a total order, a shape-tagged hash contribution, a serializability
// guard, an exact encoder/decoder pair and a byte-length prediction.
//
// Ownership boundary:
// - hash tokens and hash builders
// - wire primitives (Writer/Reader, decode limits)
// - primitive descriptors and composite combinators
// - equality/ordering adapters built from descriptors
//
// Descriptors are immutable once constructed and safe for concurrent use.
// Compare, AddToHash and MeasureBytes have no error return; a guard failure or
// an unrecognized union case inside them panics with *GuardError or
// *UnrecognizedCaseError. Callers that cannot vouch for a value check
// CanSerialize first.
package typetraits
