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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validConfig() *Config {
	cfg := &Config{
		Zones: []*ZoneConfig{
			{ID: "living", TemperatureEntity: "sensor.living_temp", SetpointEntity: "number.living_setpoint"},
		},
	}
	cfg.FillDefaults()
	return cfg
}

func TestFillDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, 50.0, *cfg.DefaultAggressiveness)
	assert.Equal(t, 25.0, *cfg.OutputMin)
	assert.Equal(t, 75.0, *cfg.OutputMax)
	assert.Equal(t, 30.0, *cfg.ActiveMinFlow)
	assert.Equal(t, 30.0, *cfg.UpdateInterval)
	assert.Equal(t, 21.0, *cfg.WeatherReferenceTemperature)
	assert.Equal(t, 1.2, *cfg.WeatherSlopeEco)
	assert.Equal(t, 2.0, *cfg.WeatherSlopeBoost)
	assert.Equal(t, 20.0, *cfg.WeatherOffset)
	require.NotNil(t, cfg.MQTTConfig)
	assert.Equal(t, "tcp://127.0.0.1:1883", cfg.MQTTConfig.URL)

	zone := cfg.Zones[0]
	assert.Equal(t, "living", zone.Name)
	assert.Equal(t, 1.0, *zone.Weight)
	assert.Equal(t, 0.1, *zone.Deadband)
	assert.Nil(t, zone.ActuatorMin)
}

func TestZoneActuatorDefaults(t *testing.T) {
	zone := &ZoneConfig{
		ID:                "living",
		TemperatureEntity: "sensor.living_temp",
		SetpointEntity:    "number.living_setpoint",
		ActuatorEntity:    "valve.living",
	}
	zone.FillDefaults()

	require.NotNil(t, zone.ActuatorMin)
	require.NotNil(t, zone.ActuatorMax)
	assert.Equal(t, 0.0, *zone.ActuatorMin)
	assert.Equal(t, 100.0, *zone.ActuatorMax)
	assert.True(t, zone.HasActuatorBounds())
}

func TestValidateRejectsEmptyZoneList(t *testing.T) {
	cfg := &Config{}
	cfg.FillDefaults()
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedOutputBounds(t *testing.T) {
	cfg := validConfig()
	cfg.OutputMin = GetPTR(80.0)
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadZones(t *testing.T) {
	cfg := validConfig()
	cfg.Zones[0].Weight = GetPTR(-1.0)
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Zones[0].Deadband = GetPTR(2.5)
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Zones = append(cfg.Zones, cfg.Zones[0])
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfigFromYAML(t *testing.T) {
	raw := `
name: house
outdoor_entity: sensor.outdoor
flow_sensor_entity: sensor.boiler_flow
output_min: 28
output_max: 70
zones:
  - zone_id: living
    name: Living room
    weight: 2
    temperature_entity: sensor.living_temp
    setpoint_entity: number.living_setpoint
    actuator_entity: valve.living
    deadband: 0.3
  - zone_id: bath
    temperature_entity: sensor.bath_temp
    setpoint_entity: number.bath_setpoint
`
	cfg := &Config{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), cfg))
	cfg.FillDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "house", cfg.Name)
	assert.Equal(t, 28.0, *cfg.OutputMin)
	require.Len(t, cfg.Zones, 2)
	assert.Equal(t, "Living room", cfg.Zones[0].Name)
	assert.Equal(t, 2.0, *cfg.Zones[0].Weight)
	assert.Equal(t, 0.3, *cfg.Zones[0].Deadband)
	assert.Equal(t, 100.0, *cfg.Zones[0].ActuatorMax)
	assert.Equal(t, "bath", cfg.Zones[1].Name)
	assert.Equal(t, 0.1, *cfg.Zones[1].Deadband)
}
