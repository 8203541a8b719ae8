// Package assertions checks the body of a recorded request.
//
// Supported checks:
//   - JSON path lookups with gjson (JSONPath)
//   - JSON Schema validation with gojsonschema, inline or from a file (Schema)
//   - Plain substring checks (Contains)
//
// Every check returns a Result describing what was expected and what was
// observed, so callers can build failure messages without re-reading the body.
package assertions
