package app

import (
	"fmt"
	"time"

	"github.com/HorseArcher567/applog/pkg/config"
	"github.com/HorseArcher567/applog/pkg/forward"
	"github.com/HorseArcher567/applog/pkg/viewer"
	"github.com/HorseArcher567/applog/pkg/xlog"
)

const defaultRotateInterval = time.Minute

// Framework holds the configuration of everything the application hosts:
// the logger, the optional viewer, alert forwarding and the rotation check.
// It can be embedded into the user's own application config struct.
//
// Example:
//
//	type AppConfig struct {
//	    app.Framework
//	    Database struct {
//	        Host string `yaml:"host"`
//	    } `yaml:"database"`
//	}
type Framework struct {
	// Logger configures the application logger.
	Logger xlog.Config `yaml:"logger" json:"logger" toml:"logger"`

	// Viewer configures the read-only HTTP viewer. Nil disables it.
	Viewer *viewer.Config `yaml:"viewer" json:"viewer" toml:"viewer"`

	// Forward configures publishing of alerts to Redis.
	Forward forward.Config `yaml:"forward" json:"forward" toml:"forward"`

	// RotateInterval is how often an idle log file is checked for rotation.
	// Defaults to one minute; a negative value is rejected.
	RotateInterval time.Duration `yaml:"rotateInterval" json:"rotateInterval" toml:"rotateInterval"`
}

func (f Framework) normalize() Framework {
	if f.RotateInterval == 0 {
		f.RotateInterval = defaultRotateInterval
	}
	if f.Forward.App == "" {
		f.Forward.App = f.Logger.AppName
	}
	return f
}

// LoadFramework reads layered config files and environment overrides into a Framework.
func LoadFramework(paths ...string) (*Framework, error) {
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, err
	}
	var f Framework
	if err := cfg.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("app: invalid config: %w", err)
	}
	return &f, nil
}
