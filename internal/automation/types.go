package automation

import (
	"strings"
	"time"
)

// Collections in the document store.
const (
	CollectionRules     = "automation_rules"
	CollectionTemplates = "message_templates"
	CollectionMessages  = "queued_messages"
)

// TriggerEvent names a stay lifecycle moment that may queue a message.
type TriggerEvent string

// Trigger events fired by the stay lifecycle and the reminder sweep.
const (
	EventBookingConfirmed      TriggerEvent = "booking_confirmed"
	EventPreCheckinReminder48h TriggerEvent = "pre_checkin_reminder_48h"
	EventPreCheckinReminder24h TriggerEvent = "pre_checkin_reminder_24h"
	EventPreCheckinDone        TriggerEvent = "pre_checkin_done"
	EventWelcomeCheckin        TriggerEvent = "welcome_checkin"
	EventCheckoutThanks        TriggerEvent = "checkout_thanks"
	EventNPSSurvey             TriggerEvent = "nps_survey"
)

// KnownEvents returns every trigger event in lifecycle order. ListRules
// seeds one rule per entry.
func KnownEvents() []TriggerEvent {
	return []TriggerEvent{
		EventBookingConfirmed,
		EventPreCheckinReminder48h,
		EventPreCheckinReminder24h,
		EventPreCheckinDone,
		EventWelcomeCheckin,
		EventCheckoutThanks,
		EventNPSSurvey,
	}
}

// Known reports whether e is one of KnownEvents.
func (e TriggerEvent) Known() bool {
	for _, k := range KnownEvents() {
		if e == k {
			return true
		}
	}
	return false
}

// Rule binds a trigger event to a template for one property. The rule id
// is the trigger event itself.
type Rule struct {
	ID           string       `json:"id"`
	PropertyID   string       `json:"propertyId"`
	TriggerEvent TriggerEvent `json:"triggerEvent"`
	Active       bool         `json:"active"`
	TemplateID   string       `json:"templateId"`
	DelayMinutes int          `json:"delayMinutes"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// RuleUpdate changes a rule. Nil fields are left as they are.
type RuleUpdate struct {
	Active       *bool   `json:"active,omitempty"`
	TemplateID   *string `json:"templateId,omitempty"`
	DelayMinutes *int    `json:"delayMinutes,omitempty" validate:"omitempty,min=0,max=43200"`
}

// Template is message text with {{variable}} placeholders.
type Template struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"propertyId"`
	Name       string    `json:"name" validate:"required,max=100"`
	Body       string    `json:"body" validate:"required,max=4096"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MessageStatus is the delivery state of a queued message.
type MessageStatus string

const (
	MessagePending MessageStatus = "pending"
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
)

// Channel is the transport a message goes out on.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// ChannelFor picks the channel for a guest contact address.
func ChannelFor(to string) Channel {
	if strings.Contains(to, "@") {
		return ChannelEmail
	}
	return ChannelWhatsApp
}

// QueuedMessage is a rendered message waiting for, or done with, dispatch.
type QueuedMessage struct {
	ID           string        `json:"id"`
	PropertyID   string        `json:"propertyId"`
	StayID       string        `json:"stayId"`
	GuestID      string        `json:"guestId,omitempty"`
	To           string        `json:"to"`
	Channel      Channel       `json:"channel"`
	Body         string        `json:"body"`
	IsAutomated  bool          `json:"isAutomated"`
	TriggerEvent TriggerEvent  `json:"triggerEvent"`
	TemplateID   string        `json:"templateId,omitempty"`
	ScheduledFor time.Time     `json:"scheduledFor"`
	Status       MessageStatus `json:"status"`
	Attempts     int           `json:"attempts"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	SentAt       *time.Time    `json:"sentAt,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Due reports whether the message may be dispatched at now.
func (m *QueuedMessage) Due(now time.Time) bool {
	return m.Status == MessagePending && !m.ScheduledFor.After(now)
}
