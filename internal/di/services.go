package di

import (
	"context"
	"fmt"

	"github.com/aristath/trainlog/internal/config"
	"github.com/aristath/trainlog/internal/modules/comparison"
	"github.com/aristath/trainlog/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the comparison and archive services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.ComparisonService = comparison.NewService(
		container.RunRepository,
		ComparisonSettings(cfg),
		log,
	)

	if cfg.Archive != nil && cfg.Archive.Enabled {
		client, err := reliability.NewS3Client(context.Background(), cfg.Archive, log)
		if err != nil {
			return fmt.Errorf("failed to create archive client: %w", err)
		}
		container.ArchiveService = reliability.NewArchiveService(client, container.RunRepository, log)
	}

	return nil
}

// ComparisonSettings maps configuration onto comparison parameters
func ComparisonSettings(cfg *config.Config) comparison.Settings {
	settings := comparison.DefaultSettings()
	if cfg.Comparison == nil {
		return settings
	}

	settings.RewardWindow = cfg.Comparison.RewardWindow
	settings.LossWindow = cfg.Comparison.LossWindow
	settings.BucketSize = cfg.Comparison.BucketSize
	settings.SuccessThreshold = cfg.Comparison.SuccessThreshold
	settings.ScaleMax = cfg.Comparison.ScaleMax
	return settings
}
