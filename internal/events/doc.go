// Package events delivers committed domain events to everything outside
// the core that wants them.
//
//	stay.Manager ─┐                      ┌→ WebSocket hub (live panels)
//	housekeeping ─┼→ Bus.Publish → queue ┼→ InfluxDB points
//	              │                      └→ MQTT stayflow/events/{property}/{entity}/{type}
//	dispatch ─────┴→ Bus.MessageDispatched → InfluxDB message_dispatch
//
// Delivery is best effort. Events describe state that is already
// committed, so a lost event never loses data.
package events
