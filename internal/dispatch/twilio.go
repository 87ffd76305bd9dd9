package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/config"
)

const whatsappPrefix = "whatsapp:"

// messageCreator is the part of the Twilio REST client the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers messages through Twilio, as WhatsApp when enabled
// and plain SMS otherwise.
type TwilioSender struct {
	api      messageCreator
	from     string
	whatsapp bool
}

// NewTwilioSender creates a sender from configuration.
func NewTwilioSender(cfg config.TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, errors.New("twilio: account_sid, auth_token and from are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{api: client.Api, from: cfg.From, whatsapp: cfg.WhatsApp}, nil
}

// Send implements Sender.
func (s *TwilioSender) Send(_ context.Context, msg *automation.QueuedMessage) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.address(msg.To))
	params.SetFrom(s.address(s.from))
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: sending %s: %w", msg.ID, err)
	}
	if resp != nil && resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("twilio: %s", *resp.ErrorMessage)
	}
	return nil
}

func (s *TwilioSender) address(number string) string {
	number = strings.TrimSpace(number)
	if !s.whatsapp || strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}
