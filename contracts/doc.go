// Package contracts provides the Diameter message model that flows between
// callers, the sync bridge and the node engines.
//
// This package defines:
//   - Header: the fixed Diameter header (version, command flags, command code,
//     application id, hop-by-hop and end-to-end identifiers)
//   - AVP: a single attribute-value pair carried opaquely
//   - Message: a header plus its AVPs
//   - Envelope: the JSON representation used by broker-backed engines
//
// Encoding to the binary Diameter wire format is owned by the engines and is
// not part of this package.
package contracts
