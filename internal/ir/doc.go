// Package ir provides the value model for sweep configurations.
//
// Every configuration layer, search-space value and objective result is an
// ir.Value: a sealed variant over null, string, int, float, bool, array and
// object. All other internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - Values are never interpreted by Go shape at runtime; loaders convert
//     decoded documents with FromNative.
//   - Objects that cross a goroutine boundary are copied with Clone.
//   - MarshalCanonical is the only serialization used for hashing.
package ir
