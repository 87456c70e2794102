package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
	"github.com/Togather-Foundation/eventhub/internal/email"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"
)

var errNoPhone = errors.New("account has no phone number")

type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (accounts.Account, error)
}

type EventLookup interface {
	GetByID(ctx context.Context, id int64) (events.Event, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, templateName string, content email.Content) error
}

type Texter interface {
	Send(ctx context.Context, to, body string) error
}

var (
	_ events.Notifier        = (*Dispatcher)(nil)
	_ registrations.Notifier = (*Dispatcher)(nil)
)

// Dispatcher sends notifications after a mutation has committed. Every
// dispatch runs on its own goroutine, outlives the request that triggered it
// and only ever reports failures to the log.
type Dispatcher struct {
	accounts AccountLookup
	events   EventLookup
	mailer   Mailer
	texter   Texter
	messages *Messages
	timeout  time.Duration
	logger   zerolog.Logger
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewDispatcher(
	accountLookup AccountLookup,
	eventLookup EventLookup,
	mailer Mailer,
	texter Texter,
	messages *Messages,
	timeout time.Duration,
	logger zerolog.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		accounts: accountLookup,
		events:   eventLookup,
		mailer:   mailer,
		texter:   texter,
		messages: messages,
		timeout:  timeout,
		logger:   logger.With().Str("component", "notify").Logger(),
		now:      time.Now,
	}
}

// RegistrationConfirmed emails and texts the attendee.
func (d *Dispatcher) RegistrationConfirmed(ctx context.Context, accountID, eventID int64) {
	d.dispatch(ctx, "registration_confirmed", func(ctx context.Context, logger zerolog.Logger) error {
		account, err := d.accounts.GetByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("load account %d: %w", accountID, err)
		}
		event, err := d.events.GetByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("load event %d: %w", eventID, err)
		}

		content := d.content(account, event, "registration")
		subject := d.messages.T("registration_subject", nil)
		sms := d.messages.T("registration_sms", map[string]any{"Title": event.Title, "Date": event.Date})

		var g errgroup.Group
		g.Go(func() error {
			return d.deliver(ctx, logger, channelEmail, func(ctx context.Context) error {
				return d.mailer.Send(ctx, account.Email, subject, email.TemplateRegistrationConfirmed, content)
			})
		})
		g.Go(func() error {
			return d.deliver(ctx, logger, channelSMS, func(ctx context.Context) error {
				if account.Phone == "" {
					return errNoPhone
				}
				return d.texter.Send(ctx, account.Phone, sms)
			})
		})
		return g.Wait()
	})
}

// EventCreated emails the creator.
func (d *Dispatcher) EventCreated(ctx context.Context, creatorID int64, event events.Event) {
	d.dispatch(ctx, "event_created", func(ctx context.Context, logger zerolog.Logger) error {
		account, err := d.accounts.GetByID(ctx, creatorID)
		if err != nil {
			return fmt.Errorf("load account %d: %w", creatorID, err)
		}
		content := d.content(account, event, "event_created")
		subject := d.messages.T("event_created_subject", nil)
		return d.deliver(ctx, logger, channelEmail, func(ctx context.Context) error {
			return d.mailer.Send(ctx, account.Email, subject, email.TemplateEventCreated, content)
		})
	})
}

// Wait blocks until every in-flight dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, fn func(context.Context, zerolog.Logger) error) {
	id := ulid.Make()
	logger := d.logger.With().Str("dispatch_id", id.String()).Str("notification", kind).Logger()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		ctx = email.WithDispatchID(ctx, id.String())

		if err := fn(ctx, logger); err != nil {
			logger.Warn().Err(err).Msg("notification failed")
			return
		}
		logger.Debug().Msg("notification dispatched")
	}()
}

// deliver runs one channel send and records its outcome. Disabled channels
// and missing phone numbers count as skipped, not failed.
func (d *Dispatcher) deliver(ctx context.Context, logger zerolog.Logger, channel string, send func(context.Context) error) error {
	start := d.now()
	err := send(ctx)
	metrics.NotificationDuration.WithLabelValues(channel).Observe(d.now().Sub(start).Seconds())

	switch {
	case err == nil:
		metrics.NotificationsTotal.WithLabelValues(channel, "sent").Inc()
		logger.Info().Str("channel", channel).Msg("notification sent")
		return nil
	case errors.Is(err, email.ErrDisabled), errors.Is(err, ErrSMSDisabled), errors.Is(err, errNoPhone):
		metrics.NotificationsTotal.WithLabelValues(channel, "skipped").Inc()
		logger.Debug().Str("channel", channel).Str("reason", err.Error()).Msg("notification skipped")
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues(channel, "failed").Inc()
		return fmt.Errorf("%s: %w", channel, err)
	}
}

func (d *Dispatcher) content(account accounts.Account, event events.Event, prefix string) email.Content {
	name := account.FullName
	if name == "" {
		name = account.Username
	}
	return email.Content{
		Lang:          d.messages.Lang(),
		Heading:       d.messages.T(prefix+"_heading", nil),
		Greeting:      d.messages.greeting(name),
		Body:          d.messages.T(prefix+"_body", nil),
		Closing:       d.messages.T(prefix+"_closing", nil),
		DateLabel:     d.messages.T("label_date", nil),
		LocationLabel: d.messages.T("label_location", nil),
		Event: email.EventSummary{
			Title:    event.Title,
			Date:     event.Date,
			Time:     event.Time,
			Location: event.Location,
		},
		Year: d.now().Year(),
	}
}
