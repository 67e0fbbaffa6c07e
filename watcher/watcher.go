package watcher

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tywin1104/mc-dashboard/config"
)

// Reload re-decodes and validates the config held by v and hands it to apply.
// An invalid config is reported and not applied.
func Reload(v *viper.Viper, apply func(*config.Config)) error {
	c, err := config.Decode(v)
	if err != nil {
		return err
	}
	apply(c)
	return nil
}

// WatchConfig will watch for config file update and re-validate config values
func WatchConfig(v *viper.Viper, log *logrus.Entry, apply func(*config.Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		log.WithFields(logrus.Fields{
			"file": e.Name,
		}).Info("Config file changed")
		if err := Reload(v, apply); err != nil {
			log.WithFields(logrus.Fields{
				"err": err.Error(),
			}).Error("Invalid configuration. Keeping the previous settings")
		}
	})
	v.WatchConfig()
}
