// Package template defines the report-template data model shared across the
// module: the ReportTemplate aggregate, the Field definition with its
// type-specific attribute variants, department access configuration, the
// append-only change log, and usage counters. Behaviour lives elsewhere
// (pkg/validation, pkg/access, pkg/version, pkg/usage, pkg/lifecycle); this
// package only carries the values those components operate on.
package template
