// Package influxdb provides InfluxDB connectivity for StayFlow Core.
//
// It wraps the official influxdb-client-go v2 library for the operational
// metrics the core emits:
//   - stay_transitions: one point per committed stay event
//   - housekeeping_tasks and cabin_status: task and cabin events
//   - message_dispatch: outcome of each automated message
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics switched off
//	}
//	defer client.Close()
//
//	client.WriteDispatch("pousada", "whatsapp", "sent")
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched per the batch_size and flush_interval settings; a nil or closed
// client drops points silently.
package influxdb
