// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package registry

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/havenlink/internal/models"
)

// AddAlert inserts a motion alert into the recent list, keeping it strictly
// timestamp-descending and capped at models.MaxRecentAlerts; insertion past
// the cap evicts the oldest entry.
func (r *Registry) AddAlert(alert models.MotionAlert) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.insertAlertLocked(alert)
	count := len(r.alerts)
	r.mu.Unlock()

	if r.agg != nil {
		r.agg.Record(models.NewMotionAlertEvent(alert.Timestamp, alert.DeviceID, alert.Type))
	}
	r.publisher.AlertsUpdated(count)
}

// insertAlertLocked places the alert by timestamp. Must be called with mu
// held.
func (r *Registry) insertAlertLocked(alert models.MotionAlert) {
	idx := sort.Search(len(r.alerts), func(i int) bool {
		return r.alerts[i].Timestamp.Before(alert.Timestamp)
	})
	r.alerts = append(r.alerts, models.MotionAlert{})
	copy(r.alerts[idx+1:], r.alerts[idx:])
	r.alerts[idx] = alert

	if len(r.alerts) > models.MaxRecentAlerts {
		r.alerts = r.alerts[:models.MaxRecentAlerts]
	}
}

// RecentAlerts returns a copy of the recent-alert list, newest first.
func (r *Registry) RecentAlerts() []models.MotionAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.MotionAlert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// alertDescriptions seeds backfilled alert text per type.
var alertDescriptions = map[models.AlertType]string{
	models.AlertMotion:   "Motion detected",
	models.AlertPerson:   "Person spotted near the door",
	models.AlertVehicle:  "Vehicle in the driveway",
	models.AlertPackage:  "Package delivered",
	models.AlertDoorbell: "Doorbell pressed",
}

var alertTypes = []models.AlertType{
	models.AlertMotion,
	models.AlertPerson,
	models.AlertVehicle,
	models.AlertPackage,
	models.AlertDoorbell,
}

// backfillAlerts synthesizes a recent alert history for camera-class
// devices after a device load, mirroring what the remote would return from
// an event-history endpoint. Discarded when the load generation is stale.
func (r *Registry) backfillAlerts(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || (seq > 0 && seq != r.loadSeq) {
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()
	for _, id := range r.deviceOrder {
		device := r.devices[id]
		switch device.Type {
		case models.DeviceTypeCamera, models.DeviceTypeDoorbell, models.DeviceTypeMotionSensor:
		default:
			continue
		}
		for i := 0; i < 1+rng.Intn(3); i++ {
			alertType := alertTypes[rng.Intn(len(alertTypes))]
			r.insertAlertLocked(models.MotionAlert{
				ID:          uuid.NewString(),
				DeviceID:    id,
				Timestamp:   now.Add(-time.Duration(rng.Intn(86400)) * time.Second),
				Description: fmt.Sprintf("%s at %s", alertDescriptions[alertType], device.Name),
				Type:        alertType,
				Confidence:  0.5 + rng.Float64()*0.5,
				HasVideo:    device.Type != models.DeviceTypeMotionSensor,
			})
		}
	}
}
