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

package flow_model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1.0, 0.0, 1.0))
	assert.Equal(t, 1.0, Clamp(2.0, 0.0, 1.0))
	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 0.4, Lerp(0.4, 1.0, 0.0))
	assert.Equal(t, 1.0, Lerp(0.4, 1.0, 1.0))
	assert.InDelta(t, 0.7, Lerp(0.4, 1.0, 0.5), 1e-9)
}

func TestWeatherCurveMissingOutdoorIsWorstCase(t *testing.T) {
	curve := WeatherCurve{
		ReferenceTemperature: 21.0,
		SlopeEco:             1.0,
		SlopeBoost:           1.0,
		Offset:               20.0,
	}
	// No outdoor reading: delta falls back to the full reference.
	assert.InDelta(t, 41.0, curve.Target(nil, 0.0, 25.0, 75.0), 1e-6)
}

func TestWeatherCurveWarmOutdoorClampsDeltaAtZero(t *testing.T) {
	curve := WeatherCurve{
		ReferenceTemperature: 21.0,
		SlopeEco:             1.2,
		SlopeBoost:           2.0,
		Offset:               20.0,
	}
	outdoor := 25.0
	// Warmer than reference: only the offset remains, clamped to the floor.
	assert.Equal(t, 25.0, curve.Target(&outdoor, 0.0, 25.0, 75.0))
}

func TestWeatherCurveSlopeInterpolation(t *testing.T) {
	curve := WeatherCurve{
		ReferenceTemperature: 21.0,
		SlopeEco:             1.0,
		SlopeBoost:           3.0,
		Offset:               20.0,
	}
	outdoor := 11.0 // delta 10
	assert.InDelta(t, 30.0, curve.Target(&outdoor, 0.0, 0.0, 100.0), 1e-9)
	assert.InDelta(t, 50.0, curve.Target(&outdoor, 1.0, 0.0, 100.0), 1e-9)
	assert.InDelta(t, 40.0, curve.Target(&outdoor, 0.5, 0.0, 100.0), 1e-9)
}

func TestBlendTargetZeroDemandPinsToMinimum(t *testing.T) {
	assert.Equal(t, 25.0, BlendTarget(0.0, 53.6, 25.0, 75.0, 30.0))
	assert.Equal(t, 25.0, BlendTarget(-0.5, 53.6, 25.0, 75.0, 30.0))
}

func TestBlendTargetFullDemandReachesMaximum(t *testing.T) {
	// Weather-limited target plus released headroom hits output_max exactly.
	assert.InDelta(t, 75.0, BlendTarget(1.0, 53.6, 25.0, 75.0, 30.0), 1e-9)
}

func TestBlendTargetPartialDemand(t *testing.T) {
	// floor=30, limited=50, half demand: 30 + 10 + 12.5
	assert.InDelta(t, 52.5, BlendTarget(0.5, 50.0, 25.0, 75.0, 30.0), 1e-9)
}

func TestBlendTargetStaysWithinBounds(t *testing.T) {
	for _, demand := range []float64{0.0, 0.1, 0.25, 0.5, 0.75, 0.9, 1.0} {
		for _, weather := range []float64{10.0, 30.0, 55.0, 90.0} {
			got := BlendTarget(demand, weather, 25.0, 75.0, 30.0)
			assert.GreaterOrEqual(t, got, 25.0)
			assert.LessOrEqual(t, got, 75.0)
		}
	}
}

func TestTrimTargetProportionalCorrection(t *testing.T) {
	// error 2.0 -> trim 0.4
	assert.InDelta(t, 50.4, TrimTarget(50.0, 48.0, 25.0, 75.0), 1e-9)
	// measured above target pulls it down
	assert.InDelta(t, 49.6, TrimTarget(50.0, 52.0, 25.0, 75.0), 1e-9)
}

func TestTrimTargetClampsTrimAndBounds(t *testing.T) {
	// error 30 -> trim capped at 5
	assert.InDelta(t, 55.0, TrimTarget(50.0, 20.0, 25.0, 75.0), 1e-9)
	// correction never leaves the output envelope
	assert.Equal(t, 75.0, TrimTarget(74.0, 40.0, 25.0, 75.0))
	assert.Equal(t, 25.0, TrimTarget(26.0, 60.0, 25.0, 75.0))
}
