package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
//
// Domain events use: stayflow/events/{property}/{entity}/{type}
const (
	// TopicPrefix is the root of every StayFlow topic.
	TopicPrefix = "stayflow"

	// TopicPrefixEvents is the base for committed domain events.
	TopicPrefixEvents = "stayflow/events"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "stayflow/system"
)

// Topics provides builders for StayFlow MQTT topics.
//
//	topics := mqtt.Topics{}
//	topic := topics.Event("pousada", "stay", "stay.checked_out")
//	// Returns: "stayflow/events/pousada/stay/stay.checked_out"
type Topics struct{}

// Event returns the topic a committed domain event is published on.
// Characters MQTT reserves for wildcards and levels are replaced so that
// an id can never widen a consumer's subscription.
//
// Example: stayflow/events/pousada/housekeeping_task/task.approved
func (Topics) Event(propertyID, entity, eventType string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixEvents, level(propertyID), level(entity), level(eventType))
}

// SystemStatus returns the retained online/offline status topic (LWT).
//
// Example: stayflow/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

var levelReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

func level(s string) string {
	if s == "" {
		return "_"
	}
	return levelReplacer.Replace(s)
}
