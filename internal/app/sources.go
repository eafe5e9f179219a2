package app

import (
	"fmt"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/player"
	"github.com/ayusman/mudra/internal/plugin"
)

// OpenSink returns the player plugin named in cfg, or a dry-run sink when
// dry run is requested or no plugin can drive a player.
func OpenSink(cfg *config.Config) (dispatch.Sink, error) {
	log := logging.For("app")
	if cfg.DryRun {
		log.Info().Msg("dry run: commands are logged, not sent")
		return player.NewDryRun(), nil
	}

	sink, err := player.Open(plugin.NewManager(cfg.Plugins.Dir), plugin.NewExecutor(cfg.Plugins.Timeout), cfg.Plugins.Name)
	if err != nil {
		if cfg.Plugins.Name != "" {
			return nil, fmt.Errorf("player plugin %q: %w", cfg.Plugins.Name, err)
		}
		log.Warn().Err(err).Str("dir", cfg.Plugins.Dir).Msg("no player plugin found, falling back to dry run")
		return player.NewDryRun(), nil
	}
	log.Info().Str("plugin", sink.Name()).Msg("using player plugin")
	return sink, nil
}

// OpenDetector starts the MediaPipe detector, falling back to a detector
// that never sees hands.
func OpenDetector(cfg detector.Config) detector.Detector {
	log := logging.For("app")
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
		return detector.NewMockDetector()
	}
	log.Info().Msg("using MediaPipe hand detection")
	return mp
}
