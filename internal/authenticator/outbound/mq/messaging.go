package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/usecase"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/messaging"
	"github.com/shandysiswandi/otpkeep/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

// Messaging publishes account events as JSON messages.
type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

// NewMessaging returns a Messaging publishing through client.
func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishAccountEnrolled(ctx context.Context, msg usecase.AccountEvent) error {
	ctx, span := m.ins.Tracer("authenticator.outbound.mq").Start(ctx, "PublishAccountEnrolled")
	defer span.End()

	if err := m.publish(ctx, event.AccountEnrolledDestination, strconv.Itoa(msg.Index), accountMessage(msg)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishAccountRemoved(ctx context.Context, msg usecase.AccountEvent) error {
	ctx, span := m.ins.Tracer("authenticator.outbound.mq").Start(ctx, "PublishAccountRemoved")
	defer span.End()

	if err := m.publish(ctx, event.AccountRemovedDestination, strconv.Itoa(msg.Index), accountMessage(msg)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishSelectionChanged(ctx context.Context, msg usecase.SelectionEvent) error {
	ctx, span := m.ins.Tracer("authenticator.outbound.mq").Start(ctx, "PublishSelectionChanged")
	defer span.End()

	body := event.SelectionMessage{Selected: msg.Selected, At: msg.At.UnixMilli()}
	if err := m.publish(ctx, event.SelectionChangedDestination, "selection", body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) publish(ctx context.Context, destination, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return m.client.Publish(ctx, destination, messaging.Message{
		Key:     key,
		Body:    body,
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	})
}

func accountMessage(msg usecase.AccountEvent) event.AccountMessage {
	return event.AccountMessage{
		Index:       msg.Index,
		Label:       msg.Account.Label(),
		AccountName: msg.Account.AccountName,
		Issuer:      msg.Account.Issuer,
		Algorithm:   msg.Account.Algorithm,
		Digits:      msg.Account.Digits,
		PeriodMS:    msg.Account.PeriodMS,
		At:          msg.At.UnixMilli(),
	}
}
