package backup

import "errors"

var (
	// Precondition errors
	ErrDumpToolMissing = errors.New("dump tool not found")
	ErrBackupDir       = errors.New("backup directory unusable")
	ErrArtifactExists  = errors.New("artifact already exists")
	ErrConnectionCheck = errors.New("database connection check failed")

	// Execution errors
	ErrDumpFailed      = errors.New("dump failed")
	ErrArtifactMissing = errors.New("artifact missing after dump")
	ErrEmptyArtifact   = errors.New("artifact is empty")
)
