package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Watch follows the config file at path and applies logging.level changes
// to level. Nothing else is reloaded at runtime.
func Watch(path string, level zap.AtomicLevel, logger *zap.Logger) error {
	v, err := newViper(ResolvePath(path))
	if err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		applyLogLevel(v, e, level, logger)
	})
	v.WatchConfig()
	logger.Info("Watching config file", zap.String("path", v.ConfigFileUsed()))
	return nil
}

func applyLogLevel(v *viper.Viper, e fsnotify.Event, level zap.AtomicLevel, logger *zap.Logger) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	raw := v.GetString("logging.level")
	next, err := zapcore.ParseLevel(raw)
	if err != nil {
		logger.Warn("Ignoring invalid logging.level on reload",
			zap.String("file", e.Name),
			zap.String("level", raw),
		)
		return
	}
	if next == level.Level() {
		return
	}
	previous := level.Level()
	level.SetLevel(next)
	logger.Info("Log level changed",
		zap.String("file", e.Name),
		zap.String("from", previous.String()),
		zap.String("to", next.String()),
	)
}
