// Package mqtt provides MQTT client connectivity for StayFlow Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing committed domain events
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The broker is the integration point for systems outside the core: door
// locks that need the access code, the channel manager, reporting jobs.
// Every committed operation publishes its events here.
//
//	StayFlow Core → MQTT Broker → lock controllers, reporting, panels
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Events carry guest-related ids; restrict the stayflow/events/# ACL
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Event("pousada", "stay", "stay.checked_in")
//	err = client.PublishJSON(topic, event)
package mqtt
