package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrSMSDisabled is returned when SMS delivery is switched off.
var ErrSMSDisabled = errors.New("sms delivery disabled")

// messageCreator is the slice of the Twilio REST API the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSSender delivers text messages through Twilio.
type SMSSender struct {
	api    messageCreator
	from   string
	logger zerolog.Logger
}

func NewSMSSender(cfg config.SMSConfig, logger zerolog.Logger) *SMSSender {
	s := &SMSSender{
		from:   cfg.FromNumber,
		logger: logger.With().Str("component", "sms").Logger(),
	}
	if cfg.Enabled {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		s.api = client.Api
	}
	return s
}

func (s *SMSSender) Enabled() bool {
	return s.api != nil
}

// Send delivers body to the phone number. The Twilio client does not take a
// context, so ctx is only checked before the call.
func (s *SMSSender) Send(ctx context.Context, to, body string) error {
	if s.api == nil {
		return ErrSMSDisabled
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("missing phone number")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio API error: %w", err)
	}

	event := s.logger.Info()
	if resp != nil && resp.Sid != nil {
		event = event.Str("sid", *resp.Sid)
	}
	event.Msg("sms sent via Twilio")
	return nil
}
