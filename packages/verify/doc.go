// Package verify evaluates declarative expectation files against recorded
// requests.
//
// An expectations file is YAML:
//
//	expectations:
//	  - name: fetches the resource once
//	    method: GET
//	    route: http://domain/path/to/resource
//	    query: param=1
//	    times: 1
//	  - name: never deletes
//	    method: DELETE
//	    route: /path/to/resource
//	    never: true
//	  - name: posts the order
//	    method: POST
//	    route: /orders
//	    bodyContains: ['"sku"']
//
// Recordings are read from a JSON or YAML export or from a SQLite store
// named with a "sqlite:" prefix. Watch re-runs a callback when any of the
// input files change.
package verify
