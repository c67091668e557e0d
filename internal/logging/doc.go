// Package logging assembles the structured slog loggers used across bsie.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attr helpers plus a no-op logger so components emit
// data with the same shape everywhere. Prefer these constructors over
// hand-rolled slog setup.
package logging
