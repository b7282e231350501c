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
	"strings"
	"sync"

	"github.com/antst/mzhfc/internal/config"
	"github.com/antst/mzhfc/internal/logger"
	"github.com/antst/mzhfc/internal/safe_mqtt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const stateClientPrefix = "mzhfc-state-"

// StateSource caches the latest raw payload per entity from the state
// topic tree and resolves entity ids from that cache. The cache is owned
// by the MQTT callback goroutines; cycle-side access is read-only.
type StateSource struct {
	mu     sync.RWMutex
	values map[string]string
	mqtt   safe_mqtt.MqttClient
	prefix string
	notify func()
}

// NewStateSource subscribes to `<state_topic>/#` and keeps the latest
// payload per entity id. notify, when non-nil, is called after every
// accepted update so the controller can shorten its next cycle.
func NewStateSource(mqttCfg *config.MQTTConfig, notify func()) *StateSource {
	s := &StateSource{
		values: make(map[string]string),
		prefix: mqttCfg.StateTopic + "/",
		notify: notify,
	}
	s.mqtt = safe_mqtt.InitMQTTClient(mqttCfg.URL, stateClientPrefix+uuid.New().String())
	s.mqtt.SafeSubscribe(mqttCfg.StateTopic+"/#", mqttQoS, s.stateUpdateHandler)
	return s
}

func (s *StateSource) stateUpdateHandler(client mqtt.Client, message mqtt.Message) {
	entityID := strings.TrimPrefix(message.Topic(), s.prefix)
	if entityID == "" || entityID == message.Topic() {
		return
	}
	s.ingest(entityID, string(message.Payload()))
}

func (s *StateSource) ingest(entityID, payload string) {
	s.mu.Lock()
	changed := s.values[entityID] != payload
	s.values[entityID] = payload
	s.mu.Unlock()

	logger.L().Debugf("Got state for entity %s : %s", entityID, payload)
	if changed && s.notify != nil {
		s.notify()
	}
}

// Close disconnects the underlying MQTT client.
func (s *StateSource) Close() {
	if s.mqtt != nil {
		s.mqtt.Disconnect(disconnectQuiesce)
	}
}

// Resolve implements ValueSource over the cached payloads.
func (s *StateSource) Resolve(entityID string) (float64, bool) {
	if entityID == "" {
		return 0, false
	}
	s.mu.RLock()
	raw, ok := s.values[entityID]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return resolveRaw(raw)
}
