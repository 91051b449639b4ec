// Package services defines shared utilities consumed by the exclusion builder,
// the mover statistics monitor, and the library-manager integrations.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers and triggers for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can tell an
//     unreachable manager from a missing configuration.
//
// Subpackages hold the HTTP clients for the library managers.
package services
