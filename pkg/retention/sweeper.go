package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/williamokano/backup-tool/pkg/backup"
	"github.com/williamokano/backup-tool/pkg/storage"
)

// Day is the unit of the retention window. Ages are counted in elapsed
// 24-hour periods, so daylight-saving shifts do not move the boundary.
const Day = 24 * time.Hour

// Policy describes one sweep
type Policy struct {
	// RetentionDays keeps artifacts up to this many whole days old; 0
	// disables the sweep
	RetentionDays int
	DryRun        bool
}

// Failure is an artifact that could not be removed
type Failure struct {
	Path string
	Err  error
}

// Result is the outcome of sweeping one backend
type Result struct {
	Backend  string
	Disabled bool // retention is 0, nothing was examined
	Missing  bool // the backend location does not exist

	// Candidates are the expired artifacts, in listing order
	Candidates []storage.FileInfo
	Removed    []string
	Failed     []Failure
}

// Expired reports whether an artifact last modified at mtime is strictly
// older than days whole days at now
func Expired(mtime, now time.Time, days int) bool {
	if days <= 0 {
		return false
	}
	return int64(now.Sub(mtime)/Day) > int64(days)
}

// Sweeper removes expired artifacts from a backend
type Sweeper struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper using the wall clock
func NewSweeper(logger zerolog.Logger) *Sweeper {
	return &Sweeper{logger: logger, now: time.Now}
}

// WithClock replaces the clock used to age artifacts
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep applies policy to the artifacts on backend. A failed deletion is
// recorded in the Result and the sweep carries on; only a failed listing
// returns an error.
func (s *Sweeper) Sweep(ctx context.Context, backend storage.Backend, policy Policy) (*Result, error) {
	result := &Result{Backend: backend.Name()}
	log := s.logger.With().Str("backend", backend.Name()).Logger()

	if policy.RetentionDays <= 0 {
		result.Disabled = true
		log.Info().Msg("Retention disabled (retention_days=0), keeping all backups")
		return result, nil
	}

	log.Info().
		Int("retention_days", policy.RetentionDays).
		Msgf("Cleaning up backups older than %d days", policy.RetentionDays)

	files, err := backend.List(ctx, backup.ArtifactPattern)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			result.Missing = true
			log.Warn().Msg("Backup directory does not exist, nothing to clean up")
			return result, nil
		}
		return nil, fmt.Errorf("failed to list backups on %s: %w", backend.Name(), err)
	}

	now := s.now()
	for _, f := range files {
		if !Expired(f.ModTime, now, policy.RetentionDays) {
			continue
		}
		result.Candidates = append(result.Candidates, f)
		ageDays := int64(now.Sub(f.ModTime) / Day)

		if policy.DryRun {
			log.Info().
				Str("file", f.Path).
				Int64("age_days", ageDays).
				Msgf("[DRY RUN] Would remove: %s", f.Path)
			continue
		}

		if err := backend.Delete(ctx, f.Path); err != nil {
			result.Failed = append(result.Failed, Failure{Path: f.Path, Err: err})
			log.Warn().
				Err(err).
				Str("file", f.Path).
				Msgf("Failed to remove: %s", f.Path)
			continue
		}

		result.Removed = append(result.Removed, f.Path)
		log.Info().
			Str("file", f.Path).
			Int64("age_days", ageDays).
			Msgf("Removed: %s", f.Path)
	}

	switch {
	case len(result.Candidates) == 0:
		log.Info().Msg("No old backups to remove")
	case policy.DryRun:
		log.Info().
			Int("count", len(result.Candidates)).
			Msgf("[DRY RUN] %d old backup(s) would be removed", len(result.Candidates))
	case len(result.Removed) == 0:
		log.Warn().
			Int("failed", len(result.Failed)).
			Msg("No old backups removed, every deletion failed")
	default:
		log.Info().
			Int("removed", len(result.Removed)).
			Int("failed", len(result.Failed)).
			Msgf("Removed %d old backup(s)", len(result.Removed))
	}

	return result, nil
}
