package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeMessageAPI struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessageAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestSMSSender_Disabled(t *testing.T) {
	s := NewSMSSender(config.SMSConfig{}, zerolog.Nop())
	assert.False(t, s.Enabled())
	assert.ErrorIs(t, s.Send(context.Background(), "+15550100", "hi"), ErrSMSDisabled)
}

func TestSMSSender_EnabledBuildsClient(t *testing.T) {
	s := NewSMSSender(config.SMSConfig{Enabled: true, AccountSID: "AC123", AuthToken: "token", FromNumber: "+15550000"}, zerolog.Nop())
	assert.True(t, s.Enabled())
}

func TestSMSSender_Send(t *testing.T) {
	api := &fakeMessageAPI{}
	s := &SMSSender{api: api, from: "+15550000", logger: zerolog.Nop()}

	require.NoError(t, s.Send(context.Background(), " +15550100 ", "See you there"))
	require.NotNil(t, api.params)
	assert.Equal(t, "+15550100", *api.params.To)
	assert.Equal(t, "+15550000", *api.params.From)
	assert.Equal(t, "See you there", *api.params.Body)
}

func TestSMSSender_Errors(t *testing.T) {
	api := &fakeMessageAPI{err: errors.New("boom")}
	s := &SMSSender{api: api, from: "+15550000", logger: zerolog.Nop()}

	assert.ErrorContains(t, s.Send(context.Background(), "+15550100", "x"), "twilio API error")
	assert.ErrorContains(t, s.Send(context.Background(), " ", "x"), "missing phone number")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "+15550100", "x"), context.Canceled)
}
