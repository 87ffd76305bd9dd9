package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by the core.
const (
	MeasurementStayTransitions = "stay_transitions"
	MeasurementHousekeeping    = "housekeeping_tasks"
	MeasurementCabinStatus     = "cabin_status"
	MeasurementMessageDispatch = "message_dispatch"
)

// WriteDomainEvent records one committed domain event. The measurement is
// chosen from the entity; property and event type are tags.
//
// Example:
//
//	client.WriteDomainEvent("pousada", "stay", "stay.checked_out", "finished", at)
func (c *Client) WriteDomainEvent(propertyID, entity, eventType, status string, at time.Time) {
	measurement := MeasurementStayTransitions
	switch entity {
	case "housekeeping_task":
		measurement = MeasurementHousekeeping
	case "cabin":
		measurement = MeasurementCabinStatus
	}

	tags := map[string]string{
		"property_id": propertyID,
		"event":       eventType,
	}
	if status != "" {
		tags["status"] = status
	}
	c.writePoint(measurement, tags, at)
}

// WriteDispatch records the outcome of one outbound message.
func (c *Client) WriteDispatch(propertyID, channel, outcome string) {
	c.writePoint(MeasurementMessageDispatch,
		map[string]string{
			"property_id": propertyID,
			"channel":     channel,
			"outcome":     outcome,
		},
		time.Now(),
	)
}

// writePoint queues a single-count point. The write is non-blocking;
// failures surface through SetOnError.
func (c *Client) writePoint(measurement string, tags map[string]string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, map[string]any{"count": 1}, at))
}
