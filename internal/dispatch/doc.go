// Package dispatch delivers queued automated messages to guests.
//
// The automation scheduler only queues messages; this package is the
// outbound side. A Worker polls each property's due messages and routes
// them by channel:
//
//	whatsapp → TwilioSender   (Guarded by a circuit breaker)
//	email    → SendGridSender (Guarded by a circuit breaker)
//
// Outcomes are written back through the Queue: sent, failed, or left
// pending when the transport's breaker is open.
package dispatch
