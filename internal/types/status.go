package types

import "github.com/samber/lo"

// Status represents the soft-delete lifecycle of a persisted record.
// Financial records are never hard-deleted, only voided (archived).
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Validate() bool {
	allowed := []Status{
		StatusPublished,
		StatusDeleted,
		StatusArchived,
	}
	return lo.Contains(allowed, s)
}

// RunMode is the mode in which the application is running
type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeProd  RunMode = "prod"
)

// LogLevel is the level of the log
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
