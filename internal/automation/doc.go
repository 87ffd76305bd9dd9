// Package automation turns stay lifecycle moments into scheduled guest
// messages.
//
// A trigger event fired inside a stay transaction is matched to the
// property's rule for that event, the rule's template is rendered against
// the stay, guest and cabin, and the result is queued with a delivery time.
// Nothing is sent here; the dispatch worker polls the queue.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│              Scheduler (scheduler.go)                  │
//	│  Fire(ctx, tx, stayID, event)                          │
//	│  ┌──────────────────────────────────────────────┐     │
//	│  │  1. Rule for event (inactive → no-op)         │     │
//	│  │  2. Template (missing → no-op)                │     │
//	│  │  3. Stay, guest, cabin (no contact → no-op)   │     │
//	│  │  4. Render {{variables}}        (render.go)   │     │
//	│  │  5. now + delay, quiet hours    (quiet.go)    │     │
//	│  │  6. Queue pending message                     │     │
//	│  └──────────────────────────────────────────────┘     │
//	│  admin.go: rules and templates                         │
//	│  queue.go: list, retry, due, sent/failed               │
//	└───────────────────────────────────────────────────────┘
//
// # Quiet hours
//
// Unless an event is configured as real-time, a delivery time that lands
// in the nightly window is moved forward hour by hour, in the property's
// local time, to the first hour outside it and truncated to the hour.
// With the default 21–08 window a message due at 22:30 goes out at 08:00
// the next morning.
//
// # Thread Safety
//
// Scheduler holds no mutable state and is safe for concurrent use.
package automation
