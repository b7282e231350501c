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

import "github.com/antst/mzhfc/internal/flow_model"

// demandAccumulator folds per-zone (weight, demand) pairs into the
// combined demand. Zones must be added in configuration order: a peak
// candidate is scaled by the running maximum weight seen so far, so
// ordering is part of the contract.
type demandAccumulator struct {
	totalWeight float64
	weightedSum float64
	maxWeight   float64
	peak        float64
}

func (a *demandAccumulator) Add(weight, demand float64) {
	a.totalWeight += weight
	a.weightedSum += weight * demand
	if weight > a.maxWeight {
		a.maxWeight = weight
	}
	candidate := 0.0
	if a.maxWeight > 0 {
		candidate = demand * (weight / a.maxWeight)
	}
	if candidate > a.peak {
		a.peak = candidate
	}
}

// Combined blends the weight-normalized average with the peak by the
// aggressiveness dial. With no weight collected both results are zero.
func (a *demandAccumulator) Combined(aggressiveness float64) (average, combined float64) {
	if a.totalWeight <= 0 {
		return 0.0, 0.0
	}
	average = a.weightedSum / a.totalWeight
	combined = flow_model.Clamp(flow_model.Lerp(average, a.peak, aggressiveness), 0.0, 1.0)
	return average, combined
}
