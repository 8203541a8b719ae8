// Package query parses and compares URL query strings.
//
// A query is held as a multiset of key/value pairs, so two queries are equal
// when they carry the same pairs regardless of key order or the order of
// repeated keys. Two comparison modes are offered:
//   - Whole-query equality: Set.Equal
//   - Single parameter checks: Set.Has and Set.HasValue
package query
