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
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antst/mzhfc/internal/config"
	"github.com/antst/mzhfc/internal/db"
	"github.com/antst/mzhfc/internal/flow_model"
	"github.com/antst/mzhfc/internal/logger"
	"github.com/antst/mzhfc/internal/safe_mqtt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	timerDuration       = 50 * time.Millisecond
	mqttQoS             = 1
	aggressivenessScale = 0.01
	controlClientPrefix = "mzhfc-"
	enabledValueName    = "enabled"
	disconnectQuiesce   = 250 // ms
)

// FlowController drives one control cycle at a time: resolve readings,
// evaluate each zone, aggregate demand, blend with the weather curve, trim
// against the measured flow and publish the result. All cycle state is
// touched only from Run's goroutine, so the runtime map needs no locking.
type FlowController struct {
	cfg         *config.Config
	log         *zap.SugaredLogger
	store       *db.Store
	mqtt        safe_mqtt.MqttClient
	source      ValueSource
	stateSource *StateSource
	zones       []*ZoneController

	lastCycle time.Time
	state     *ControllerState
	enabled   bool
	forceChan chan bool
	quit      chan struct{}
	runDone   chan struct{}

	saveCancel context.CancelFunc
	saveDone   chan struct{}
}

func NewFlowController(cfg *config.Config) (*FlowController, error) {
	store, err := db.Open(cfg.DBFile)
	if err != nil {
		return nil, errors.Wrap(err, "flow controller")
	}

	c := newFlowController(cfg, nil, store, nil)
	c.stateSource = NewStateSource(cfg.MQTTConfig, c.forceUpdate)
	c.source = c.stateSource
	c.mqtt = safe_mqtt.InitMQTTClient(cfg.MQTTConfig.URL, controlClientPrefix+uuid.New().String())
	c.setupMQTTSubscriptions()

	c.LoadRuntime(context.Background())
	c.setEnabled(c.readValueWithDefault(enabledValueName, "true"))
	return c, nil
}

// newFlowController wires a controller from parts; used directly by tests
// with a fake source and no MQTT client.
func newFlowController(
	cfg *config.Config, source ValueSource, store *db.Store, client safe_mqtt.MqttClient,
) *FlowController {
	c := &FlowController{
		cfg:       cfg,
		log:       logger.Named(cfg.Name),
		store:     store,
		mqtt:      client,
		source:    source,
		forceChan: make(chan bool, 2),
		quit:      make(chan struct{}),
		runDone:   make(chan struct{}),
		enabled:   true,
		lastCycle: time.Now(),
	}
	c.zones = make([]*ZoneController, 0, len(cfg.Zones))
	for _, zcfg := range cfg.Zones {
		c.zones = append(c.zones, newZoneController(zcfg, c.log))
	}
	return c
}

func (c *FlowController) setupMQTTSubscriptions() {
	controlTopic := c.cfg.MQTTConfig.ControlTopic
	c.mqtt.SafeSubscribe(controlTopic+"/aggressiveness", mqttQoS, c.controlUpdateHandler)
	c.mqtt.SafeSubscribe(controlTopic+"/log_level", mqttQoS, c.controlUpdateHandler)
	c.mqtt.SafeSubscribe(controlTopic+"/enable", mqttQoS, c.controlUpdateHandler)
}

// State returns the result of the most recent completed cycle.
func (c *FlowController) State() *ControllerState {
	return c.state
}

// Cycle computes one ControllerState at the given instant. It fails only
// when there is nothing to aggregate; individual sensor dropouts degrade
// per the zone and weather rules instead.
func (c *FlowController) Cycle(now time.Time) (*ControllerState, error) {
	if len(c.zones) == 0 {
		return nil, errors.New("no zones configured")
	}

	dt := now.Sub(c.lastCycle).Seconds()
	if dt <= 0 {
		dt = *c.cfg.UpdateInterval
	}
	c.lastCycle = now

	rawAggressiveness := resolveOpt(c.source, c.cfg.AggressivenessEntity)
	if rawAggressiveness == nil {
		rawAggressiveness = c.cfg.DefaultAggressiveness
	}
	aggressiveness := flow_model.Clamp(*rawAggressiveness*aggressivenessScale, 0.0, 1.0)
	c.log.Debugf("Aggressiveness raw=%.2f scaled=%.3f", *rawAggressiveness, aggressiveness)

	outdoor := resolveOpt(c.source, c.cfg.OutdoorEntity)
	flow := resolveOpt(c.source, c.cfg.FlowSensorEntity)

	acc := demandAccumulator{}
	diagnostics := make(map[string]*ZoneDiagnostics, len(c.zones))
	for _, zone := range c.zones {
		diag, weight, demand, ok := zone.Evaluate(c.source, dt, aggressiveness)
		diagnostics[zone.ID()] = diag
		if ok {
			acc.Add(weight, demand)
		}
	}
	average, combined := acc.Combined(aggressiveness)
	c.log.Debugf("Demand summary: avg=%.3f peak=%.3f combined=%.3f", average, acc.peak, combined)

	curve := flow_model.WeatherCurve{
		ReferenceTemperature: *c.cfg.WeatherReferenceTemperature,
		SlopeEco:             *c.cfg.WeatherSlopeEco,
		SlopeBoost:           *c.cfg.WeatherSlopeBoost,
		Offset:               *c.cfg.WeatherOffset,
	}
	weatherTarget := curve.Target(outdoor, aggressiveness, *c.cfg.OutputMin, *c.cfg.OutputMax)
	c.log.Debugf("Weather compensation: outdoor=%v target=%.2f", optF(outdoor), weatherTarget)

	targetFlow := flow_model.BlendTarget(
		combined, weatherTarget, *c.cfg.OutputMin, *c.cfg.OutputMax, *c.cfg.ActiveMinFlow,
	)
	if flow != nil {
		trimmed := flow_model.TrimTarget(targetFlow, *flow, *c.cfg.OutputMin, *c.cfg.OutputMax)
		c.log.Debugf("Flow feedback: measured=%.2f target=%.2f trimmed=%.2f", *flow, targetFlow, trimmed)
		targetFlow = trimmed
	}

	c.log.Debugf(
		"Update complete: target_flow=%.2f aggressiveness=%.3f combined_demand=%.3f",
		targetFlow, aggressiveness, combined,
	)

	state := &ControllerState{
		TargetFlow:         targetFlow,
		CombinedDemand:     combined,
		Aggressiveness:     aggressiveness,
		WeatherTarget:      weatherTarget,
		Zones:              diagnostics,
		FlowTemperature:    flow,
		OutdoorTemperature: outdoor,
	}
	c.state = state
	c.scheduleSave()
	return state, nil
}

// Run drives the control loop until Close is called. The save bookkeeping
// is only ever touched from this goroutine; teardown therefore happens
// here too, after the loop exits.
func (c *FlowController) Run() {
	interval := time.Duration(*c.cfg.UpdateInterval * float64(time.Second))
	timer := time.NewTimer(timerDuration)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			c.shutdown()
			return
		case <-c.forceChan:
			c.resetTimer(timer)
		case <-timer.C:
			c.runCycle()
		case <-ticker.C:
			c.runCycle()
		}
	}
}

func (c *FlowController) resetTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(timerDuration)
}

func (c *FlowController) runCycle() {
	if !c.enabled {
		c.publishTargetFlow(*c.cfg.OutputMin)
		return
	}
	state, err := c.Cycle(time.Now())
	if err != nil {
		c.log.Errorf("Cycle failed: %v", err)
		return
	}
	c.publishState(state)
}

func (c *FlowController) publishState(state *ControllerState) {
	if c.mqtt == nil {
		return
	}
	c.publishTargetFlow(state.TargetFlow)

	payload, err := json.Marshal(state)
	if err != nil {
		c.log.Error(err)
	} else {
		c.mqtt.SafePublish(c.cfg.MQTTConfig.ControlTopic+"/state", mqttQoS, true, payload)
	}

	for id, diag := range state.Zones {
		if diag.ActuatorTarget == nil {
			continue
		}
		c.mqtt.SafePublish(
			c.cfg.MQTTConfig.ControlTopic+"/zone/"+id+"/actuator_target",
			mqttQoS, true, fmt.Sprintf("%.3f", *diag.ActuatorTarget),
		)
	}
}

func (c *FlowController) publishTargetFlow(target float64) {
	if c.mqtt == nil {
		return
	}
	if token := c.mqtt.SafePublish(
		c.cfg.MQTTConfig.ControlTopic+"/target_flow", mqttQoS, true, fmt.Sprintf("%.1f", target),
	); token.Wait() && token.Error() != nil {
		c.log.Error(token.Error())
	}
}

func (c *FlowController) controlUpdateHandler(client mqtt.Client, message mqtt.Message) {
	topic := message.Topic()[strings.LastIndex(message.Topic(), "/")+1:]
	c.log.Infof("Got MQTT control request: %v : %v", topic, string(message.Payload()))
	switch topic {
	case "aggressiveness":
		if v, err := strconv.ParseFloat(string(message.Payload()), 64); err == nil {
			c.cfg.DefaultAggressiveness = &v
			c.log.Infof("Updated default aggressiveness to %v", v)
			c.forceUpdate()
		} else {
			c.log.Error(err)
		}
	case "log_level":
		if err := c.cfg.LogLevel.Set(string(message.Payload())); err != nil {
			c.log.Errorf("Wrong log level `%v`", string(message.Payload()))
		} else {
			logger.SetLogLevel(c.cfg.LogLevel)
			c.log.Infof("Updated loglevel to `%v`", c.cfg.LogLevel.String())
		}
	case "enable":
		c.setEnabled(string(message.Payload()))
	}
}

func (c *FlowController) setEnabled(val string) {
	switch strings.ToLower(val) {
	case "true", "on":
		c.enabled = true
	case "false", "off":
		c.enabled = false
	default:
		c.log.Warnf("Invalid value for enable: %v", val)
		return
	}
	if c.mqtt != nil {
		active := "OFF"
		if c.enabled {
			active = "ON"
		}
		c.mqtt.SafePublish(c.cfg.MQTTConfig.ControlTopic+"/active", mqttQoS, true, active)
	}
	c.writeValue(enabledValueName, strconv.FormatBool(c.enabled))
	c.forceUpdate()
}

func (c *FlowController) forceUpdate() {
	select {
	case c.forceChan <- true:
	default:
	}
}

// LoadRuntime restores persisted zone integrals. Any failure leaves the
// integrals at zero, which is a cold start, not an error.
func (c *FlowController) LoadRuntime(ctx context.Context) {
	if c.store == nil {
		return
	}
	payload, err := c.store.LoadRuntimeDocument(ctx, c.cfg.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.log.Debugf("No persisted runtime state for %s", c.cfg.Name)
		} else {
			c.log.Warnf("Unable to load runtime state: %v", err)
		}
		return
	}
	var doc runtimeDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		c.log.Warnf("Unable to decode runtime state: %v", err)
		return
	}
	for _, zone := range c.zones {
		if st, ok := doc.Zones[zone.ID()]; ok {
			zone.setIntegral(st.Integral)
			c.log.Debugf("Restored zone %s integral to %.6f", zone.ID(), st.Integral)
		}
	}
}

func (c *FlowController) snapshotRuntime() []byte {
	doc := runtimeDocument{Zones: make(map[string]zoneRuntimeState, len(c.zones))}
	for _, zone := range c.zones {
		doc.Zones[zone.ID()] = zoneRuntimeState{Integral: zone.Integral()}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		c.log.Error(err)
		return nil
	}
	return payload
}

// scheduleSave persists the runtime document in the background. At most
// one save is in flight; scheduling while one runs is a no-op.
func (c *FlowController) scheduleSave() {
	if c.store == nil {
		return
	}
	if c.saveDone != nil {
		select {
		case <-c.saveDone:
		default:
			return
		}
	}
	payload := c.snapshotRuntime()
	if payload == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.saveCancel = cancel
	c.saveDone = done
	name := c.cfg.Name

	go func() {
		defer close(done)
		defer cancel()
		if err := c.store.SaveRuntimeDocument(ctx, name, payload); err != nil {
			c.log.Warnf("Unable to persist runtime state: %v", err)
		}
	}()
}

// Close stops the run loop and waits for its teardown to complete: the
// outstanding save is cancelled and awaited, both MQTT clients are
// disconnected and the store is released. Call at most once, after Run
// has been started.
func (c *FlowController) Close() {
	close(c.quit)
	<-c.runDone
}

// shutdown is the teardown half of Run; it runs on the loop goroutine so
// the save bookkeeping never sees concurrent access. Tests without a run
// loop call it directly.
func (c *FlowController) shutdown() {
	defer close(c.runDone)

	if c.saveCancel != nil {
		c.saveCancel()
		<-c.saveDone
		c.saveCancel = nil
		c.saveDone = nil
	}
	if c.mqtt != nil {
		c.mqtt.Disconnect(disconnectQuiesce)
	}
	if c.stateSource != nil {
		c.stateSource.Close()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.Error(err)
		}
	}
}

func (c *FlowController) writeValue(name, value string) {
	if c.store == nil {
		return
	}
	if err := c.store.UpsertControllerValue(context.Background(), c.cfg.Name, name, value); err != nil {
		c.log.Warnf("Unable to persist `%s`: %v", name, err)
	}
}

func (c *FlowController) readValueWithDefault(name, defValue string) string {
	if c.store == nil {
		return defValue
	}
	val, err := c.store.GetControllerValue(context.Background(), c.cfg.Name, name)
	if err != nil {
		return defValue
	}
	return val
}
