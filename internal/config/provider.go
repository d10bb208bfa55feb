package config

import (
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Provider holds the current configuration and swaps in a new one when
// the config file changes. Readers call Current on every use instead of
// keeping a *Config around.
type Provider struct {
	v   *viper.Viper
	cur atomic.Pointer[Config]
	log logrus.FieldLogger
}

// NewProvider loads the configuration once.
func NewProvider(cfgFile string, log logrus.FieldLogger) (*Provider, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	v, err := readViper(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	p := &Provider{v: v, log: log}
	p.cur.Store(cfg)
	return p, nil
}

// Current returns the configuration in force.
func (p *Provider) Current() *Config {
	return p.cur.Load()
}

// File returns the config file in use, or "" when running on defaults.
func (p *Provider) File() string {
	f := p.v.ConfigFileUsed()
	if f == "" {
		return ""
	}
	if _, err := os.Stat(f); err != nil {
		return ""
	}
	return f
}

// Reload re-reads the config file. On error the current configuration is
// kept.
func (p *Provider) Reload() error {
	if err := p.v.ReadInConfig(); err != nil {
		return err
	}
	return p.refresh()
}

func (p *Provider) refresh() error {
	cfg, err := decode(p.v)
	if err != nil {
		return err
	}
	p.cur.Store(cfg)
	return nil
}

// Watch reloads the configuration whenever the file changes. It reports
// false when there is no config file to watch.
func (p *Provider) Watch() bool {
	if p.File() == "" {
		return false
	}
	p.v.OnConfigChange(func(e fsnotify.Event) {
		log := p.log.WithField("file", e.Name)
		if err := p.refresh(); err != nil {
			log.WithError(err).Warn("ignoring invalid config change")
			return
		}
		log.Info("config reloaded")
	})
	p.v.WatchConfig()
	return true
}
