/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/charai-gateway/log"
)

type loggableIntMap map[string]int64

func (lm loggableIntMap) EncodeLogfObject(e logf.FieldEncoder) error {
	for key, value := range lm {
		e.EncodeFieldInt64(key, value)
	}
	return nil
}

// LoggingParams holds extra data for the final "response completed" entry of the Logging middleware.
// Handlers and outgoing HTTP clients deeper in the chain may add to it.
type LoggingParams struct {
	mu        sync.Mutex
	fields    []log.Field
	timeSlots loggableIntMap
}

// ExtendFields adds fields to the final log entry.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.fields = append(lp.fields, fields...)
}

// AddTimeSlotDurationInMs adds dur (in milliseconds) to the named element of the "time_slots" group.
func (lp *LoggingParams) AddTimeSlotDurationInMs(name string, dur time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.timeSlots == nil {
		lp.timeSlots = make(loggableIntMap, 1)
	}
	lp.timeSlots[name] += dur.Milliseconds()
}

func (lp *LoggingParams) logFields(withTimeSlots bool) []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	fields := append([]log.Field(nil), lp.fields...)
	if withTimeSlots && len(lp.timeSlots) != 0 {
		slots := make(loggableIntMap, len(lp.timeSlots))
		for k, v := range lp.timeSlots {
			slots[k] = v
		}
		fields = append(fields, log.Field{Key: "time_slots", Type: logf.FieldTypeObject, Any: slots})
	}
	return fields
}
