package config

import (
	"encoding/json"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// configFromFile overlays the file's values onto the defaults.
func configFromFile(path string) (*Config, error) {
	config := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p := json.NewDecoder(f)
	p.DisallowUnknownFields()
	if err := p.Decode(config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %v", path)
	}
	log.Infof("Loaded configuration: %v", spew.Sdump(config))
	return config, nil
}

// Load reads the configuration at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	config, err := configFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch {
	case c.EncoderThreads <= 0:
		return errors.Errorf("EncoderThreads must be positive, got %d", c.EncoderThreads)
	case c.EncoderSlices <= 0:
		return errors.Errorf("EncoderSlices must be positive, got %d", c.EncoderSlices)
	case c.EncoderQueueDepth <= 0:
		return errors.Errorf("EncoderQueueDepth must be positive, got %d", c.EncoderQueueDepth)
	case c.ReadTimeoutMs <= 0:
		return errors.Errorf("ReadTimeoutMs must be positive, got %d", c.ReadTimeoutMs)
	case c.PrintInterval <= 0:
		return errors.Errorf("PrintInterval must be positive, got %d", c.PrintInterval)
	}
	return nil
}
