// Package sanitizer normalizes user input before validation and storage.
//
// All normalization functions are idempotent. Invalid input yields empty
// strings or empty slices rather than errors.
//
// Normalization includes:
//   - Names: collapse whitespace, trim leading/trailing spaces
//   - Labels (interview mode, slot type): trimmed and lowercased
//   - Identifiers: trimmed, lowercased hex, duplicates and empties dropped
package sanitizer
