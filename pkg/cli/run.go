package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/williamokano/backup-tool/pkg/backup"
	"github.com/williamokano/backup-tool/pkg/config"
	"github.com/williamokano/backup-tool/pkg/logger"
	"github.com/williamokano/backup-tool/pkg/report"
	"github.com/williamokano/backup-tool/pkg/retention"
	"github.com/williamokano/backup-tool/pkg/storage"
	"github.com/williamokano/backup-tool/pkg/storage/local"

	// Register the offsite backends with the storage factory
	_ "github.com/williamokano/backup-tool/pkg/storage/backblaze"
	_ "github.com/williamokano/backup-tool/pkg/storage/s3"
	_ "github.com/williamokano/backup-tool/pkg/storage/ssh"
)

// run performs one backup: resolve, preflight, dump, copy offsite, sweep,
// summarize. Errors returned before the logger exists are usage or config
// errors; everything later is logged and wrapped in fatalError.
func run(ctx context.Context, overrides config.Overrides, deps Deps) error {
	cfg, err := config.Resolve(config.ResolveOptions{
		Overrides: overrides,
		Lookup:    deps.LookupEnv,
		ScriptDir: deps.ScriptDir,
		Now:       deps.Now,
	})
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(logger.Options{
		Level:  cfg.GetLogLevel(),
		Format: cfg.GetLogFormat(),
		File:   cfg.Log.File,
		Out:    deps.Stdout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrUsage, err)
	}
	defer closeLog()

	fatal := func(err error, msg string) error {
		log.Error().Err(err).Msg(msg)
		return &fatalError{err: err}
	}

	log.Info().
		Str("database", cfg.Database.Name).
		Str("backup_dir", cfg.BackupDir).
		Int("retention_days", cfg.RetentionDays).
		Bool("dry_run", cfg.DryRun).
		Msgf("Starting backup of %s", cfg.Database.Name)
	if cfg.DryRun {
		log.Warn().Msg("[DRY RUN] No changes will be made")
	}

	executor := backup.NewExecutor(deps.Runner, log).WithLookupEnv(deps.LookupEnv)

	if err := executor.Preflight(cfg); err != nil {
		return fatal(err, "Preflight check failed")
	}

	if cfg.CheckConnection {
		if cfg.DryRun {
			log.Info().Msg("[DRY RUN] would check the database connection")
		} else if err := executor.CheckConnection(ctx, cfg); err != nil {
			return fatal(err, "Database connection check failed")
		}
	}

	outcome, err := executor.Run(ctx, cfg)
	if err != nil {
		return fatal(err, "Backup failed")
	}

	var warnings []string
	uploaded := copyOffsite(ctx, log, cfg, outcome, &warnings)
	defer storage.CloseAll(uploaded)

	sweeper := retention.NewSweeper(log).WithClock(deps.Now)
	policy := retention.Policy{RetentionDays: cfg.RetentionDays, DryRun: cfg.DryRun}

	localBackend := local.Open("local", cfg.BackupDir)
	res, err := sweeper.Sweep(ctx, localBackend, policy)
	if err != nil {
		return fatal(err, "Retention cleanup failed")
	}
	warnings = appendFailures(warnings, res)

	// Remote sweeps only run where the new artifact landed
	if !cfg.DryRun {
		for _, b := range uploaded {
			res, err := sweeper.Sweep(ctx, b, policy)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("retention cleanup on %s failed: %v", b.Name(), err))
				continue
			}
			warnings = appendFailures(warnings, res)
		}
	}

	summary := report.Summary{
		DryRun:   cfg.DryRun,
		Location: cfg.BackupDir,
		Warnings: warnings,
	}
	if err := report.Summarize(ctx, log, localBackend, summary); err != nil {
		log.Warn().Err(err).Msg("Could not list current backups")
	}

	return nil
}

// copyOffsite uploads the artifact to every enabled destination and returns
// the backends that received it. Failures only add warnings.
func copyOffsite(ctx context.Context, log zerolog.Logger, cfg *config.Config, outcome *backup.Outcome, warnings *[]string) []storage.Backend {
	destinations := cfg.EnabledDestinations()
	if len(destinations) == 0 {
		return nil
	}

	name := backup.ArtifactName(cfg.Timestamp)

	if cfg.DryRun {
		for _, d := range destinations {
			log.Info().
				Str("backend", d.Name).
				Str("type", d.Type).
				Msgf("[DRY RUN] would upload %s to %s", name, d.Name)
		}
		return nil
	}

	configs := make([]storage.Config, 0, len(destinations))
	for _, d := range destinations {
		configs = append(configs, storage.Config{
			Name:    d.Name,
			Type:    d.Type,
			Enabled: true,
			Options: d.Options,
		})
	}

	backends, failures := storage.NewFactory().CreateEach(ctx, configs)
	for _, f := range failures {
		log.Warn().Err(f.Error).Str("backend", f.BackendName).Msg("Skipping destination")
		*warnings = append(*warnings, fmt.Sprintf("destination %s unavailable: %v", f.BackendName, f.Error))
	}
	if len(backends) == 0 {
		return nil
	}

	log.Info().
		Int("destinations", len(backends)).
		Msgf("Uploading %s to %d destination(s)", name, len(backends))

	results := storage.NewMultiUploader(log, cfg.GetMaxConcurrentUploads()).
		Upload(ctx, backends, outcome.Path, name)

	var uploaded []storage.Backend
	for i, r := range results {
		if r.Success {
			uploaded = append(uploaded, backends[i])
			continue
		}
		*warnings = append(*warnings, fmt.Sprintf("upload to %s failed: %v", r.BackendName, r.Error))
		backends[i].Close()
	}

	return uploaded
}

func appendFailures(warnings []string, res *retention.Result) []string {
	for _, f := range res.Failed {
		warnings = append(warnings, fmt.Sprintf("could not remove %s from %s: %v", f.Path, res.Backend, f.Err))
	}
	return warnings
}
