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

import "github.com/pkg/errors"

const (
	zoneDefaultWeight   = 1.0
	zoneDefaultDeadband = 0.1
	actuatorDefaultMin  = 0.0
	actuatorDefaultMax  = 100.0
)

type ZoneConfig struct {
	ID                string   `yaml:"zone_id"`
	Name              string   `yaml:"name,omitempty"`
	Weight            *float64 `yaml:"weight"`
	TemperatureEntity string   `yaml:"temperature_entity"`
	SetpointEntity    string   `yaml:"setpoint_entity"`
	ActuatorEntity    string   `yaml:"actuator_entity,omitempty"`
	ActuatorMin       *float64 `yaml:"actuator_min,omitempty"`
	ActuatorMax       *float64 `yaml:"actuator_max,omitempty"`
	Deadband          *float64 `yaml:"deadband"`
}

func (z *ZoneConfig) FillDefaults() {
	if z.Name == "" {
		z.Name = z.ID
	}
	if z.Weight == nil {
		z.Weight = GetPTR(zoneDefaultWeight)
	}
	if z.Deadband == nil {
		z.Deadband = GetPTR(zoneDefaultDeadband)
	}
	if z.ActuatorEntity != "" {
		if z.ActuatorMin == nil {
			z.ActuatorMin = GetPTR(actuatorDefaultMin)
		}
		if z.ActuatorMax == nil {
			z.ActuatorMax = GetPTR(actuatorDefaultMax)
		}
	}
}

func (z *ZoneConfig) Validate() error {
	if z.ID == "" {
		return errors.New("config: zone without zone_id")
	}
	if z.TemperatureEntity == "" || z.SetpointEntity == "" {
		return errors.Errorf("config: zone `%s` needs temperature_entity and setpoint_entity", z.ID)
	}
	if *z.Weight < 0 {
		return errors.Errorf("config: zone `%s` weight must be >= 0, got %.2f", z.ID, *z.Weight)
	}
	if *z.Deadband < 0 || *z.Deadband > maxDeadband {
		return errors.Errorf("config: zone `%s` deadband must be in [0,%.0f], got %.2f", z.ID, maxDeadband, *z.Deadband)
	}
	if z.ActuatorEntity != "" && !z.HasActuatorBounds() {
		return errors.Errorf("config: zone `%s` actuator_max must be above actuator_min", z.ID)
	}
	return nil
}

// HasActuatorBounds reports whether a usable actuator range is configured.
func (z *ZoneConfig) HasActuatorBounds() bool {
	return z.ActuatorMin != nil && z.ActuatorMax != nil && *z.ActuatorMax > *z.ActuatorMin
}

func NewZoneConfig(id string) *ZoneConfig {
	cfg := &ZoneConfig{ID: id}
	cfg.FillDefaults()
	return cfg
}
