package query

import (
	"net/url"
	"sort"
	"strings"
)

// Pair is a single key/value entry of a query string.
type Pair struct {
	Key   string
	Value string
}

// Set is an unordered multiset of query pairs.
type Set struct {
	pairs []Pair
}

// Parse parses a raw query string. A leading "?" is optional, pairs are
// separated by "&" and key and value are split on the first "=".
// Percent-encoded keys and values are decoded when the encoding is valid and
// kept verbatim otherwise.
func Parse(raw string) Set {
	raw = strings.TrimPrefix(raw, "?")

	var s Set
	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		s.pairs = append(s.pairs, Pair{Key: decode(key), Value: decode(value)})
	}
	return s
}

// FromMap builds a Set from a key/value mapping. A comma-joined value
// expands into one pair per element, so {"list": "a,b"} is the same as
// "list=a&list=b".
func FromMap(m map[string]string) Set {
	var s Set
	for key, value := range m {
		for _, v := range strings.Split(value, ",") {
			s.pairs = append(s.pairs, Pair{Key: key, Value: v})
		}
	}
	return s
}

// FromValues builds a Set from url.Values.
func FromValues(values url.Values) Set {
	var s Set
	for key, vs := range values {
		for _, v := range vs {
			s.pairs = append(s.pairs, Pair{Key: key, Value: v})
		}
	}
	return s
}

func decode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// Len returns the number of pairs.
func (s Set) Len() int {
	return len(s.pairs)
}

// Pairs returns the pairs sorted by key then value.
func (s Set) Pairs() []Pair {
	sorted := make([]Pair, len(s.pairs))
	copy(sorted, s.pairs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Key != sorted[j].Key {
			return sorted[i].Key < sorted[j].Key
		}
		return sorted[i].Value < sorted[j].Value
	})
	return sorted
}

// Equal reports whether both sets hold exactly the same pairs with the same
// multiplicity.
func (s Set) Equal(other Set) bool {
	if len(s.pairs) != len(other.pairs) {
		return false
	}
	a, b := s.Pairs(), other.Pairs()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Has reports whether key is present, whatever its value.
func (s Set) Has(key string) bool {
	for _, p := range s.pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}

// HasValue reports whether key is present with value. For repeated keys any
// occurrence may match.
func (s Set) HasValue(key, value string) bool {
	for _, p := range s.pairs {
		if p.Key == key && p.Value == value {
			return true
		}
	}
	return false
}

// String renders the set in canonical sorted order.
func (s Set) String() string {
	pairs := s.Pairs()
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Key + "=" + p.Value
	}
	return strings.Join(parts, "&")
}
