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
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ValueSource resolves an entity id to its latest numeric reading. A false
// return means the entity is unknown, unavailable or not numeric; resolution
// is a pure lookup and never blocks or fails the cycle.
type ValueSource interface {
	Resolve(entityID string) (float64, bool)
}

// attributeKeys are probed, in order, when a payload is a JSON object
// rather than a bare scalar.
var attributeKeys = [...]string{"state", "temperature", "current_temperature", "value"}

var numberPattern = regexp.MustCompile(`[-+]?[0-9]*[.]?[0-9]+`)

// resolveRaw is the best-effort payload-to-float conversion. Scalar
// payloads go through safeFloat; JSON objects have their known attribute
// keys probed until one yields a number.
func resolveRaw(payload string) (float64, bool) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return 0, false
	}

	if strings.HasPrefix(trimmed, "{") {
		var attrs map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &attrs); err == nil {
			for _, key := range attributeKeys {
				raw, present := attrs[key]
				if !present {
					continue
				}
				if v, ok := coerceFloat(raw); ok {
					return v, true
				}
			}
			return 0, false
		}
	}

	return safeFloat(trimmed)
}

func coerceFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		return safeFloat(v)
	default:
		return 0, false
	}
}

// safeFloat converts a textual state to a float. Sentinel "unavailable"
// markers resolve to absent, decimal commas are normalized, and as a last
// resort the first numeric substring is extracted.
func safeFloat(state string) (float64, bool) {
	cleaned := strings.TrimSpace(state)
	if cleaned == "" {
		return 0, false
	}
	switch strings.ToLower(cleaned) {
	case "unknown", "unavailable", "none":
		return 0, false
	}

	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return v, true
	}
	if match := numberPattern.FindString(cleaned); match != "" {
		if v, err := strconv.ParseFloat(match, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// optF renders an optional float for log lines.
func optF(v *float64) interface{} {
	if v == nil {
		return "absent"
	}
	return *v
}

// resolveOpt adapts a ValueSource lookup to an optional float. An empty
// entity id is absent by definition.
func resolveOpt(source ValueSource, entityID string) *float64 {
	if entityID == "" {
		return nil
	}
	if v, ok := source.Resolve(entityID); ok {
		return &v
	}
	return nil
}
