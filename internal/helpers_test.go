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
	"sync"

	"github.com/antst/mzhfc/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeSource serves raw payloads from a map, exercising the same payload
// resolution as the MQTT-backed source.
type fakeSource map[string]string

func (f fakeSource) Resolve(entityID string) (float64, bool) {
	raw, ok := f[entityID]
	if !ok {
		return 0, false
	}
	return resolveRaw(raw)
}

// fakeMQTT satisfies safe_mqtt.MqttClient without a broker and records
// disconnects.
type fakeMQTT struct {
	mu          sync.Mutex
	disconnects int
	quiesce     uint
}

func (f *fakeMQTT) SafePublish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return &mqtt.DummyToken{}
}

func (f *fakeMQTT) SafeSubscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return &mqtt.DummyToken{}
}

func (f *fakeMQTT) SafeUnsubscribe(topics ...string) mqtt.Token {
	return &mqtt.DummyToken{}
}

func (f *fakeMQTT) Disconnect(quiesce uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.quiesce = quiesce
}

func (f *fakeMQTT) disconnected() (int, uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects, f.quiesce
}

func testZone(id string) *config.ZoneConfig {
	z := &config.ZoneConfig{
		ID:                id,
		TemperatureEntity: "sensor." + id + "_temp",
		SetpointEntity:    "number." + id + "_setpoint",
	}
	z.FillDefaults()
	return z
}

func testConfig(zones ...*config.ZoneConfig) *config.Config {
	cfg := &config.Config{
		Name:                 "test",
		OutdoorEntity:        "sensor.outdoor",
		FlowSensorEntity:     "sensor.flow",
		AggressivenessEntity: "number.aggressiveness",
		Zones:                zones,
	}
	cfg.FillDefaults()
	return cfg
}
