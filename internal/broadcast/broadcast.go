// Package broadcast holds singlewriter.Broadcaster ports for the
// downstream channels spec.md §4.9 names alongside the WebSocket hub:
// MQTT publication and GraphQL subscriptions. No MQTT client or
// GraphQL server library is present anywhere in the retrieved example
// pack, so both ports log what they would have sent rather than
// inventing a dependency. Either can be swapped for a real client
// behind the same Broadcaster interface without touching the writer.
package broadcast

import (
	"context"

	"github.com/titan-aas/titan-aas/internal/eventbus"
	"github.com/titan-aas/titan-aas/internal/logging"
)

// MQTTPublisher satisfies singlewriter.Broadcaster. A real
// implementation would publish event to a topic derived from
// event.Kind/IdentifierB64; this port logs the would-be publication.
type MQTTPublisher struct {
	logger *logging.Logger
}

// NewMQTTPublisher constructs a logging MQTT port. logger may be nil,
// in which case a default JSON logger is used.
func NewMQTTPublisher(logger *logging.Logger) *MQTTPublisher {
	if logger == nil {
		logger = logging.NewFromEnv("mqtt")
	}
	return &MQTTPublisher{logger: logger}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

func (p *MQTTPublisher) Broadcast(ctx context.Context, event eventbus.Event) error {
	p.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"topic":          string(event.Kind) + "/" + string(event.Type),
		"event_id":       event.EventID,
		"identifier_b64": event.IdentifierB64,
	}).Info("mqtt: would publish")
	return nil
}

// GraphQLPublisher satisfies singlewriter.Broadcaster. A real
// implementation would push event to a GraphQL subscription resolver
// channel; this port logs the would-be push.
type GraphQLPublisher struct {
	logger *logging.Logger
}

// NewGraphQLPublisher constructs a logging GraphQL port. logger may be
// nil, in which case a default JSON logger is used.
func NewGraphQLPublisher(logger *logging.Logger) *GraphQLPublisher {
	if logger == nil {
		logger = logging.NewFromEnv("graphql")
	}
	return &GraphQLPublisher{logger: logger}
}

func (p *GraphQLPublisher) Name() string { return "graphql" }

func (p *GraphQLPublisher) Broadcast(ctx context.Context, event eventbus.Event) error {
	p.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"event_id":       event.EventID,
		"kind":           event.Kind,
		"identifier_b64": event.IdentifierB64,
	}).Info("graphql: would push subscription")
	return nil
}
