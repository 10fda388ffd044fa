package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for gate operation spans.
const (
	AttrUsername      = "issuance.username"
	AttrOutcome       = "issuance.outcome"
	AttrCacheHit      = "issuance.cache_hit"
	AttrDirectoryURL  = "directory.url"
	AttrUpsertOutcome = "directory.upsert_outcome"
)

// String builds a string attribute.
func String(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Int builds an int attribute.
func Int(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}

// Bool builds a bool attribute.
func Bool(key string, value bool) attribute.KeyValue {
	return attribute.Bool(key, value)
}
