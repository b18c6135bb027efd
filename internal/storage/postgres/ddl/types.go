// Package ddl contains Postgres-specific helpers for applying inferred
// table definitions.
package ddl

// MapType translates a canonical column type into its Postgres spelling.
// The canonical types are valid Postgres as-is, so this is the identity
// mapping; it exists for symmetry with the other backends and as the seam
// for Postgres-specific overrides.
func MapType(canonical string) string { return canonical }
