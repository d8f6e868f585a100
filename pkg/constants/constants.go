// Package constants provides shared constants used throughout the mastermap codebase.
// This includes identifier format rules, iteration limits, artifact names and
// file permissions that should be consistent across the engine and the CLI.
package constants

import "time"

// Identifier format constants
const (
	// IdentifierLength is the fixed length of a unified social credit code
	IdentifierLength = 18

	// ScientificNotationReason marks identifiers mangled by spreadsheet number formatting
	ScientificNotationReason = "scientific_notation"

	// InvalidFormatReason marks identifiers without a single alphanumeric character
	InvalidFormatReason = "invalid_format"

	// WrongLengthReason marks identifiers whose alphanumeric body has the wrong length
	WrongLengthReason = "wrong_length"
)

// Limit constants define various limits and capacities
const (
	// MaxIterations is the hard cap on build/reconcile/classify cycles per invocation
	MaxIterations = 10

	// DefaultWorkers is the number of datasets reconciled concurrently within a pass
	DefaultWorkers = 4

	// MaxWorkers caps the configurable worker count
	MaxWorkers = 64
)

// Artifact names, relative to the run namespace in the blob store
const (
	// PendingReportName is the report written when a run awaits human resolution
	PendingReportName = "validation_report_pending.json"

	// ResolutionsName is the resolution document supplied by a reviewer
	ResolutionsName = "validation_resolutions.json"

	// SourceDataSegment is the path segment below which raw census data lives
	SourceDataSegment = "sourcedata/"

	// ReportStatusPending is the report status while human action is required
	ReportStatusPending = "pending_user_action"
)

// Canonical source defaults
const (
	// UnitBasicsTable is the normalized name of the unit basics table (611)
	UnitBasicsTable = "单位基本情况_611"

	// SurveyUnitBasicsTable is the normalized name of the surveyed unit basics table (601)
	SurveyUnitBasicsTable = "调查单位基本情况_601"

	// IdentifierColumn is the preferred identifier column name
	IdentifierColumn = "统一社会信用代码"

	// NameColumn is the preferred display name column name
	NameColumn = "单位详细名称"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like the bolt store (rw-------)
	SecureFilePermissions = 0600
)

// Timeout constants define various timeout durations used in the application
const (
	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 30 * time.Minute

	// ShutdownTimeout is how long the CLI waits for graceful shutdown
	ShutdownTimeout = 5 * time.Second

	// DefaultHTTPTimeout bounds webhook notifications
	DefaultHTTPTimeout = 10 * time.Second

	// BoltOpenTimeout is how long to wait for the bolt file lock
	BoltOpenTimeout = 1 * time.Second
)

// Format constants
const (
	// TimeFormatFilename is the format used in generated filenames
	TimeFormatFilename = "20060102-150405"

	// CSVExtension is the extension of tabular objects handled by the CSV store
	CSVExtension = ".csv"
)
