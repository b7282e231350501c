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
	"math"

	"github.com/antst/mzhfc/internal/config"
	"github.com/antst/mzhfc/internal/flow_model"

	"go.uber.org/zap"
)

const (
	pidKpEco      = 0.4
	pidKpBoost    = 1.0
	pidKiEco      = 0.0008
	pidKiBoost    = 0.003
	integralMax   = 1.0
	integralDecay = 0.8
)

// ZoneController owns one zone's PI state. All mutation happens inside
// Evaluate, which runs once per cycle on the controller goroutine.
type ZoneController struct {
	cfg *config.ZoneConfig
	log *zap.SugaredLogger

	integral  float64
	available bool
}

func newZoneController(cfg *config.ZoneConfig, log *zap.SugaredLogger) *ZoneController {
	return &ZoneController{cfg: cfg, log: log}
}

func (z *ZoneController) ID() string {
	return z.cfg.ID
}

func (z *ZoneController) Integral() float64 {
	return z.integral
}

func (z *ZoneController) setIntegral(v float64) {
	z.integral = v
}

// Evaluate runs one PI step for the zone and returns its diagnostics plus
// the (weight, demand) contribution to aggregation; ok is false when the
// zone could not be resolved and must not contribute.
//
// An unresolvable temperature or setpoint discards the accumulated
// integral rather than freezing it. Brief sensor flakiness therefore shows
// up as a demand discontinuity; that tradeoff is intentional, a stale
// integral must not drive the flow target after a restart of the sensor.
func (z *ZoneController) Evaluate(source ValueSource, dt, aggressiveness float64) (diag *ZoneDiagnostics, weight, demand float64, ok bool) {
	diag = &ZoneDiagnostics{}

	current := resolveOpt(source, z.cfg.TemperatureEntity)
	target := resolveOpt(source, z.cfg.SetpointEntity)
	diag.Temperature = current
	diag.Target = target

	if current == nil || target == nil {
		z.log.Debugf("Zone %s skipped (temperature=%v target=%v)", z.cfg.ID, optF(current), optF(target))
		z.available = false
		z.integral = 0.0
		return diag, 0, 0, false
	}
	z.available = true

	errVal := *target - *current
	if math.Abs(errVal) <= *z.cfg.Deadband {
		errVal = 0.0
	}

	kp := flow_model.Lerp(pidKpEco, pidKpBoost, aggressiveness)
	ki := flow_model.Lerp(pidKiEco, pidKiBoost, aggressiveness)

	if errVal == 0.0 {
		z.integral *= integralDecay
	} else {
		z.integral += errVal * dt
	}
	integralTerm := flow_model.Clamp(z.integral*ki, -integralMax, integralMax)
	if ki > 0 {
		// Clamp the stored state too, so windup never outlives the clamp.
		z.integral = integralTerm / ki
	}

	demand = flow_model.Clamp(kp*errVal+integralTerm, 0.0, 1.0)

	actuatorRatio := 1.0
	var actuatorTarget *float64
	if z.cfg.ActuatorEntity != "" {
		value := resolveOpt(source, z.cfg.ActuatorEntity)
		switch {
		case value != nil && z.cfg.HasActuatorBounds():
			actuatorRatio = flow_model.Clamp(
				(*value-*z.cfg.ActuatorMin)/(*z.cfg.ActuatorMax-*z.cfg.ActuatorMin), 0.0, 1.0,
			)
			diag.ActuatorRatio = config.GetPTR(actuatorRatio)
		case value == nil:
			diag.ActuatorRatio = nil
		default:
			actuatorRatio = 1.0
			diag.ActuatorRatio = config.GetPTR(actuatorRatio)
		}
		if value != nil {
			if z.cfg.ActuatorMin != nil && z.cfg.ActuatorMax != nil {
				span := *z.cfg.ActuatorMax - *z.cfg.ActuatorMin
				actuatorTarget = config.GetPTR(*z.cfg.ActuatorMin + demand*span)
			} else {
				actuatorTarget = config.GetPTR(demand * 100.0)
			}
			z.log.Debugf(
				"Zone %s actuator target=%.3f (min=%v max=%v)",
				z.cfg.ID, *actuatorTarget, optF(z.cfg.ActuatorMin), optF(z.cfg.ActuatorMax),
			)
		}
	} else {
		diag.ActuatorRatio = config.GetPTR(actuatorRatio)
	}

	diag.Error = config.GetPTR(errVal)
	diag.Demand = config.GetPTR(demand)
	// weight_factor is diagnostic only; aggregation uses the nominal weight.
	diag.WeightFactor = config.GetPTR(*z.cfg.Weight * actuatorRatio)
	diag.ActuatorTarget = actuatorTarget

	z.log.Debugf(
		"Zone %s: temp=%.2f target=%.2f error=%.3f demand=%.3f weight=%.3f actuator=%.3f",
		z.cfg.ID, *current, *target, errVal, demand, *z.cfg.Weight, actuatorRatio,
	)

	return diag, *z.cfg.Weight, demand, true
}
