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

package internal

// ZoneDiagnostics is produced fresh for every zone on every cycle. Nil
// fields mean the value could not be resolved this cycle.
type ZoneDiagnostics struct {
	Temperature    *float64 `json:"temperature"`
	Target         *float64 `json:"target"`
	Error          *float64 `json:"error"`
	Demand         *float64 `json:"demand"`
	ActuatorRatio  *float64 `json:"actuator_ratio"`
	WeightFactor   *float64 `json:"weight_factor"`
	ActuatorTarget *float64 `json:"actuator_target"`
}

// ControllerState is the immutable result of one control cycle. It stays
// the published current value until the next cycle supersedes it.
type ControllerState struct {
	TargetFlow         float64                     `json:"target_flow_c"`
	CombinedDemand     float64                     `json:"combined_demand"`
	Aggressiveness     float64                     `json:"aggressiveness"`
	WeatherTarget      float64                     `json:"weather_target_c"`
	Zones              map[string]*ZoneDiagnostics `json:"zones"`
	FlowTemperature    *float64                    `json:"flow_sensor_c"`
	OutdoorTemperature *float64                    `json:"outdoor_temperature_c"`
}

// runtimeDocument is the persisted shape of the per-zone accumulators:
// {"zones": {<zone_id>: {"integral": <float>}}}
type runtimeDocument struct {
	Zones map[string]zoneRuntimeState `json:"zones"`
}

type zoneRuntimeState struct {
	Integral float64 `json:"integral"`
}
