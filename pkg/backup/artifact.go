package backup

import (
	"path/filepath"
	"time"
)

const (
	// ArtifactPrefix and ArtifactExt frame every artifact name
	ArtifactPrefix = "backup_"
	ArtifactExt    = ".sql"

	// ArtifactTimeLayout is YYYYMMDD_HHMMSS
	ArtifactTimeLayout = "20060102_150405"

	// ArtifactPattern is the glob selecting artifacts in a listing
	ArtifactPattern = ArtifactPrefix + "*" + ArtifactExt
)

// ArtifactName returns the file name of the artifact created at ts
func ArtifactName(ts time.Time) string {
	return ArtifactPrefix + ts.Format(ArtifactTimeLayout) + ArtifactExt
}

// ArtifactPath joins the backup directory and the artifact name
func ArtifactPath(dir string, ts time.Time) string {
	return filepath.Join(dir, ArtifactName(ts))
}
