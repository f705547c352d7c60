package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/williamokano/backup-tool/pkg/backup"
	"github.com/williamokano/backup-tool/pkg/storage"
)

// ModTimeLayout formats modification times in the artifact listing
const ModTimeLayout = "2006-01-02 15:04:05"

// Summary is what the run has to say once every step finished
type Summary struct {
	DryRun bool

	// Location is the backup directory shown in the listing
	Location string

	// Warnings are non-fatal problems (offsite uploads, sweep failures)
	Warnings []string
}

// Summarize logs the final status line and, outside dry-run, the artifacts
// currently present on backend in listing order
func Summarize(ctx context.Context, logger zerolog.Logger, backend storage.Backend, s Summary) error {
	switch {
	case s.DryRun:
		logger.Info().Msg("[DRY RUN] Backup process completed, no changes were made")
		return nil
	case len(s.Warnings) > 0:
		for _, w := range s.Warnings {
			logger.Warn().Msg(w)
		}
		logger.Warn().
			Int("warnings", len(s.Warnings)).
			Msg("Backup process completed with warnings")
	default:
		logger.Info().Msg("Backup process completed successfully")
	}

	files, err := backend.List(ctx, backup.ArtifactPattern)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(files) == 0 {
		logger.Info().Msgf("No backups present in %s", s.Location)
		return nil
	}

	logger.Info().Int("count", len(files)).Msgf("Current backups in %s:", s.Location)
	for _, f := range files {
		logger.Info().
			Str("path", filepath.Join(s.Location, f.Path)).
			Int64("size_bytes", f.Size).
			Time("modified", f.ModTime).
			Msgf("  %s  %s  %s",
				filepath.Join(s.Location, f.Path),
				humanize.Bytes(uint64(f.Size)),
				f.ModTime.Local().Format(ModTimeLayout))
	}

	return nil
}
