// Package canonical produces deterministic JSON for persisted snapshots and
// golden traces.
//
// Output rules:
//   - Object keys sorted by UTF-16 code units (RFC 8785 ordering)
//   - No HTML escaping (< > & are written literally)
//   - Strings NFC-normalized
//   - Numbers kept exactly as the source encoding wrote them
//   - No insignificant whitespace
//
// Values are first encoded with their regular JSON marshalers, so struct
// tags and custom MarshalJSON methods apply. The result is then re-encoded
// canonically.
package canonical
