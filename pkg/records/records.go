// Package records defines the loosely-typed record shape shared by the
// extraction, transform, and storage layers.
//
// A Record is one provider payload object as decoded from JSON. No field is
// guaranteed to be present, non-nil, or of any particular type; callers read
// fields through the accessor helpers and coerce values explicitly instead of
// type-asserting inline.
package records

// Record is a single raw record: string keys mapped to arbitrary decoded
// values (scalars, json.Number, nested maps, slices).
type Record map[string]any

// Get returns the raw value for key and whether the key was present.
func (r Record) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// Has reports whether key is present, even when its value is nil.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the value for key when it is a string, otherwise def.
// Absent, nil, and non-string values all yield def.
func (r Record) String(key, def string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return def
}

// Map returns the nested mapping under key, or nil when the value is absent
// or not a mapping. JSON decoding produces map[string]any for nested
// objects; both that shape and Record itself are accepted.
func (r Record) Map(key string) Record {
	switch m := r[key].(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	default:
		return nil
	}
}

// Clone returns a shallow copy of the record. Nested maps and slices are
// shared with the original.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
