package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/telemetry"
)

// PublisherMock stands in for the AMQP publisher for both domain events and
// audit envelopes.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ExpectEvent expects a single domain event published under its own name as
// routing key. match may be nil.
func (m *PublisherMock) ExpectEvent(name string, match func(observability.EventEnvelope) bool) *mock.Call {
	return m.On("Publish", mock.Anything, name, mock.MatchedBy(func(env observability.EventEnvelope) bool {
		return env.EventName == name && (match == nil || match(env))
	})).Once()
}

var (
	_ rabbitmq.Publisher  = (*PublisherMock)(nil)
	_ telemetry.Publisher = (*PublisherMock)(nil)
)
