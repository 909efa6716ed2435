package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/smartcharge/core/factory"
	"github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/infra/monitoring"
	"github.com/kilianp07/smartcharge/infra/mqtt"
)

type Config struct {
	Location      LocationConfig       `json:"location"`
	Pricing       PricingConfig        `json:"pricing"`
	Planning      PlanningConfig       `json:"planning"`
	Grid          GridConfig           `json:"grid"`
	Chargers      []ChargerConfig      `json:"chargers"`
	Cars          []CarConfig          `json:"cars"`
	Meter         MeterConfig          `json:"meter"`
	Devices       DevicesConfig        `json:"devices"`
	MQTT          mqtt.Config          `json:"mqtt"`
	Store         factory.ModuleConfig `json:"store"`
	Metrics       metrics.Config       `json:"metrics"`
	Logging       LoggingConfig        `json:"logging"`
	Sentry        monitoring.Config    `json:"sentry"`
	Schedule      ScheduleConfig       `json:"schedule"`
	API           APIConfig            `json:"api"`
	Notifications NotificationsConfig  `json:"notifications"`
}

// Load reads a yaml or json file, applies K_ prefixed environment overrides
// (K_GRID__FUSE_RATING=35), fills defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Location.SetDefaults()
	c.Pricing.SetDefaults()
	c.Planning.SetDefaults()
	c.Grid.SetDefaults()
	for i := range c.Chargers {
		c.Chargers[i].SetDefaults()
	}
	c.Devices.SetDefaults()
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	c.Logging.SetDefaults()
	c.Schedule.SetDefaults()
	c.API.SetDefaults()
	c.Notifications.SetDefaults()
}

// Validate checks every section and joins the errors.
func (c *Config) Validate() error {
	errs := []error{
		c.Location.Validate(),
		c.Pricing.Validate(),
		c.Planning.Validate(),
		c.Grid.Validate(),
		c.Logging.Validate(),
		c.Schedule.Validate(),
	}
	if len(c.Chargers) == 0 {
		errs = append(errs, errors.New("chargers: at least one charger is required"))
	}
	for _, ch := range c.Chargers {
		errs = append(errs, ch.Validate(c.Grid))
	}
	for _, car := range c.Cars {
		errs = append(errs, car.Validate())
	}
	if c.Meter.ID == "" {
		errs = append(errs, errors.New("meter: id is required"))
	}
	if c.MQTT.Broker != "" {
		mc := c.MQTT
		mc.SetDefaults()
		errs = append(errs, mc.Validate())
	}
	return errors.Join(errs...)
}
