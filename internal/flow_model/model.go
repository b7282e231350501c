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

// Package flow_model holds the pure flow-temperature math: the weather
// compensation curve, the demand/weather blending and the measured-flow
// trim. Nothing here touches MQTT, the DB or the clock.
package flow_model

const (
	flowTrimGain = 0.2
	flowTrimMax  = 5.0
)

func Clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}

func Lerp(a, b, factor float64) float64 {
	return (1.0-factor)*a + factor*b
}

// WeatherCurve is the outdoor-compensation baseline. Slope is interpolated
// between the eco and boost values by the aggressiveness dial.
type WeatherCurve struct {
	ReferenceTemperature float64
	SlopeEco             float64
	SlopeBoost           float64
	Offset               float64
}

// Target computes the compensation baseline, clamped to the output bounds.
// A nil outdoor reading is treated as worst-case cold (delta = reference).
func (c WeatherCurve) Target(outdoor *float64, aggressiveness, outputMin, outputMax float64) float64 {
	delta := c.ReferenceTemperature
	if outdoor != nil {
		delta = c.ReferenceTemperature - *outdoor
		if delta < 0 {
			delta = 0
		}
	}
	slope := Lerp(c.SlopeEco, c.SlopeBoost, aggressiveness)
	return Clamp(c.Offset+slope*delta, outputMin, outputMax)
}

// BlendTarget merges the combined demand with the weather baseline.
// Zero demand pins the output to outputMin exactly. Above the weather
// curve the remaining headroom is released in proportion to demand, so a
// full-demand cycle is not capped by mild-weather compensation.
func BlendTarget(demand, weatherTarget, outputMin, outputMax, activeMinFlow float64) float64 {
	if demand <= 0 {
		return outputMin
	}
	activeFloor := outputMin
	if activeMinFlow > activeFloor {
		activeFloor = activeMinFlow
	}
	weatherLimited := Clamp(weatherTarget, activeFloor, outputMax)
	target := activeFloor + (weatherLimited-activeFloor)*demand
	if headroom := outputMax - weatherLimited; headroom > 0 {
		target += headroom * demand
	}
	return Clamp(target, outputMin, outputMax)
}

// TrimTarget nudges the target toward the measured supply flow with a
// bounded proportional correction.
func TrimTarget(target, measured, outputMin, outputMax float64) float64 {
	trim := Clamp((target-measured)*flowTrimGain, -flowTrimMax, flowTrimMax)
	return Clamp(target+trim, outputMin, outputMax)
}
