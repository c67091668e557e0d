// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal statement models into transport-friendly
// DTOs so consumers never couple to internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Pipeline
// states are exposed both as their canonical uppercase identifiers and as
// humanized display labels. Timestamps use RFC3339 with milliseconds.
package api
