/*
 * Copyright (c) 2024. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZHFC project.
 *
 * MZHFC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package config

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/antst/mzhfc/internal/logger"

	"github.com/pborman/getopt/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultName       = "mzhfc"
	defaultDBFile     = "~/.mzhfc.db"
	defaultConfigFile = "config.yaml"

	defaultAggressiveness = 50.0
	defaultOutputMin      = 25.0
	defaultOutputMax      = 75.0
	defaultActiveMinFlow  = 30.0
	defaultUpdateInterval = 30.0
	defaultWeatherRef     = 21.0
	defaultSlopeEco       = 1.2
	defaultSlopeBoost     = 2.0
	defaultWeatherOffset  = 20.0

	maxDeadband = 2.0
)

func GetPTR[T any](v T) *T {
	return &v
}

// Config describes one controller instance: the heat source it steers,
// its output envelope, the weather compensation curve and the zone list.
type Config struct {
	Name       string        `yaml:"name"`
	LogLevel   zapcore.Level `yaml:"log_level"`
	MQTTConfig *MQTTConfig   `yaml:"mqtt"`
	DBFile     string        `yaml:"db_file"`

	OutdoorEntity        string `yaml:"outdoor_entity"`
	FlowSensorEntity     string `yaml:"flow_sensor_entity,omitempty"`
	AggressivenessEntity string `yaml:"aggressiveness_entity,omitempty"`

	// DefaultAggressiveness is the raw dial value (0-100), used whenever
	// the aggressiveness entity is missing or unresolvable.
	DefaultAggressiveness *float64 `yaml:"default_aggressiveness"`

	OutputMin     *float64 `yaml:"output_min"`
	OutputMax     *float64 `yaml:"output_max"`
	ActiveMinFlow *float64 `yaml:"active_min_flow"`

	// UpdateInterval is the cycle period in seconds. It also substitutes
	// for dt on the first cycle and after clock anomalies.
	UpdateInterval *float64 `yaml:"update_interval"`

	WeatherReferenceTemperature *float64 `yaml:"weather_reference_temperature"`
	WeatherSlopeEco             *float64 `yaml:"weather_slope_eco"`
	WeatherSlopeBoost           *float64 `yaml:"weather_slope_boost"`
	WeatherOffset               *float64 `yaml:"weather_offset"`

	Zones []*ZoneConfig `yaml:"zones"`
}

func defConfig() *Config {
	return &Config{
		Name:       defaultName,
		MQTTConfig: NewMQTTConfig(),
		DBFile:     defaultDBFile,
		Zones:      make([]*ZoneConfig, 0),
	}
}

func prettyPrint(cfg *Config) {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		logger.L().Error("Failed to marshal config for pretty print", err)
		return
	}
	logger.L().Debugf("--- Config ---\n%s\n\n", string(d))
}

func (cfg *Config) FillDefaults() {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.MQTTConfig == nil {
		cfg.MQTTConfig = NewMQTTConfig()
	}
	cfg.MQTTConfig.FillDefaults()

	if cfg.DefaultAggressiveness == nil {
		cfg.DefaultAggressiveness = GetPTR(defaultAggressiveness)
	}
	if cfg.OutputMin == nil {
		cfg.OutputMin = GetPTR(defaultOutputMin)
	}
	if cfg.OutputMax == nil {
		cfg.OutputMax = GetPTR(defaultOutputMax)
	}
	if cfg.ActiveMinFlow == nil {
		cfg.ActiveMinFlow = GetPTR(defaultActiveMinFlow)
	}
	if cfg.UpdateInterval == nil {
		cfg.UpdateInterval = GetPTR(defaultUpdateInterval)
	}
	if cfg.WeatherReferenceTemperature == nil {
		cfg.WeatherReferenceTemperature = GetPTR(defaultWeatherRef)
	}
	if cfg.WeatherSlopeEco == nil {
		cfg.WeatherSlopeEco = GetPTR(defaultSlopeEco)
	}
	if cfg.WeatherSlopeBoost == nil {
		cfg.WeatherSlopeBoost = GetPTR(defaultSlopeBoost)
	}
	if cfg.WeatherOffset == nil {
		cfg.WeatherOffset = GetPTR(defaultWeatherOffset)
	}

	for _, z := range cfg.Zones {
		z.FillDefaults()
	}
}

// Validate checks the invariants the control core assumes. Call after
// FillDefaults.
func (cfg *Config) Validate() error {
	if len(cfg.Zones) == 0 {
		return errors.New("config: no zones configured")
	}
	if *cfg.OutputMin >= *cfg.OutputMax {
		return errors.Errorf(
			"config: output_min (%.2f) must be below output_max (%.2f)",
			*cfg.OutputMin, *cfg.OutputMax,
		)
	}
	if *cfg.UpdateInterval <= 0 {
		return errors.Errorf("config: update_interval must be positive, got %.2f", *cfg.UpdateInterval)
	}
	seen := make(map[string]bool, len(cfg.Zones))
	for _, z := range cfg.Zones {
		if err := z.Validate(); err != nil {
			return err
		}
		if seen[z.ID] {
			return errors.Errorf("config: duplicate zone id `%s`", z.ID)
		}
		seen[z.ID] = true
	}
	return nil
}

func Get() *Config {
	cfg := defConfig()
	logLevel := getopt.StringLong("log-level", 'l', "", "log levels: debug, info, warn, error, dpanic, panic, fatal")
	configFile := getopt.StringLong("config", 'c', defaultConfigFile, "config file pathname")

	getopt.Parse()

	if err := readFile(cfg, *configFile); err != nil {
		log.Panicf("GetConfig: %v", err)
	}

	logger.L().Infof("Using config file `%v`", *configFile)
	dbFile := getopt.StringLong("db", 'd', cfg.DBFile, "DB file pathname")

	if *dbFile != "" {
		cfg.DBFile = *dbFile
	}
	logger.L().Infof("Using DB file `%v`", cfg.DBFile)

	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		log.Panicf("GetConfig: %v", err)
	}

	if *logLevel != "" {
		if err := cfg.LogLevel.Set(*logLevel); err != nil {
			logger.L().Errorf("Wrong log level `%v`: %v", *logLevel, err)
		}
	}
	logger.SetLogLevel(cfg.LogLevel)

	prettyPrint(cfg)

	return cfg
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

func readFile(cfg *Config, configFileName string) error {
	if !fileExists(configFileName) {
		return nil
	}

	f, err := os.Open(configFileName)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	return nil
}
