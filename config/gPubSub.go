package config

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSubPublisher publishes outbox payloads to a single Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher uses Application Default Credentials unless
// PUBSUB_CREDENTIALS_JSON is provided.
func NewPubSubPublisher(ctx context.Context, s *Settings) (*PubSubPublisher, error) {
	if s.PubSubProjectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	if s.PubSubTopic == "" {
		return nil, errors.New("PUBSUB_TOPIC is required")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if s.PubSubCredentialsJSON != "" {
		c, err = pubsub.NewClient(ctx, s.PubSubProjectID, option.WithCredentialsJSON([]byte(s.PubSubCredentialsJSON)))
	} else {
		c, err = pubsub.NewClient(ctx, s.PubSubProjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	t, err := createTopicIfNotExists(ctx, c, s.PubSubTopic)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &PubSubPublisher{client: c, topic: t}, nil
}

func createTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// Publish sends data with attributes and returns the server-assigned message id.
func (p *PubSubPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	return result.Get(ctx)
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
