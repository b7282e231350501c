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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulatorEmptyIsZero(t *testing.T) {
	acc := demandAccumulator{}
	average, combined := acc.Combined(0.5)
	assert.Equal(t, 0.0, average)
	assert.Equal(t, 0.0, combined)
}

func TestAccumulatorZeroWeightZonesAreInert(t *testing.T) {
	acc := demandAccumulator{}
	acc.Add(0.0, 1.0)
	average, combined := acc.Combined(1.0)
	assert.Equal(t, 0.0, average)
	assert.Equal(t, 0.0, combined)
}

func TestAccumulatorWeightedAverage(t *testing.T) {
	acc := demandAccumulator{}
	acc.Add(3.0, 1.0)
	acc.Add(1.0, 0.0)
	average, combined := acc.Combined(0.0)
	assert.InDelta(t, 0.75, average, 1e-9)
	// aggressiveness 0: combined is the pure average
	assert.InDelta(t, 0.75, combined, 1e-9)
}

func TestAccumulatorPeakBlend(t *testing.T) {
	acc := demandAccumulator{}
	acc.Add(3.0, 1.0)
	acc.Add(1.0, 0.0)
	_, combined := acc.Combined(1.0)
	// full boost: the heavy full-demand zone dominates
	assert.InDelta(t, 1.0, combined, 1e-9)

	acc = demandAccumulator{}
	acc.Add(3.0, 1.0)
	acc.Add(1.0, 0.0)
	_, halfway := acc.Combined(0.5)
	assert.InDelta(t, 0.875, halfway, 1e-9)
}

func TestAccumulatorPeakUsesRunningMaxWeight(t *testing.T) {
	// A light full-demand zone seen before the heavy one keeps its full
	// candidate; seen after, it is scaled down by the heavier weight.
	first := demandAccumulator{}
	first.Add(1.0, 1.0)
	first.Add(4.0, 0.5)
	_, combined := first.Combined(1.0)
	assert.InDelta(t, 1.0, combined, 1e-9)

	second := demandAccumulator{}
	second.Add(4.0, 0.5)
	second.Add(1.0, 1.0)
	_, combined = second.Combined(1.0)
	assert.InDelta(t, 0.5, combined, 1e-9)
}

func TestAccumulatorCombinedStaysNormalized(t *testing.T) {
	for _, aggressiveness := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		acc := demandAccumulator{}
		acc.Add(2.0, 0.9)
		acc.Add(0.5, 1.0)
		acc.Add(1.5, 0.1)
		_, combined := acc.Combined(aggressiveness)
		assert.GreaterOrEqual(t, combined, 0.0)
		assert.LessOrEqual(t, combined, 1.0)
	}
}
