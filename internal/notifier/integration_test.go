//go:build integration

package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"pluspress/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) config(name string) Config {
	return Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-" + name,
		RoutingKey: "test-routing-key-" + name,
		QueueName:  "test-queue-" + name,
	}
}

func (s *RabbitMQIntegrationSuite) TestNotifier_Connection() {
	n, err := NewRabbitMQ(s.config("connect"), s.logger)
	s.NoError(err)
	s.NotNil(n)

	s.NoError(n.Close())
}

func (s *RabbitMQIntegrationSuite) TestNotifier_PublishCreated() {
	cfg := s.config("created")
	n, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer n.Close()

	now := time.Now().Truncate(time.Millisecond)
	err = n.Publish(s.ctx, &domain.PostEvent{
		Action:   domain.ActionCreated,
		ItemID:   "z12abc",
		PostID:   "101",
		Title:    "Sunset",
		Kind:     "photo",
		ItemURL:  "https://plus.google.com/z12abc",
		PostedAt: now,
	})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal("post.created", msg.Type)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
	_, err = uuid.Parse(msg.MessageId)
	s.NoError(err)

	var received domain.PostEvent
	s.NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(domain.ActionCreated, received.Action)
	s.Equal("z12abc", received.ItemID)
	s.Equal("101", received.PostID)
	s.Equal("photo", received.Kind)
	s.True(now.Equal(received.PostedAt))
}

func (s *RabbitMQIntegrationSuite) TestNotifier_PublishUpdatedReshare() {
	cfg := s.config("updated")
	n, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer n.Close()

	err = n.Publish(s.ctx, &domain.PostEvent{
		Action:  domain.ActionUpdated,
		ItemID:  "z12def",
		PostID:  "102",
		Kind:    "web page",
		Reshare: true,
	})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("post.updated", msg.Type)

	var received domain.PostEvent
	s.NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(domain.ActionUpdated, received.Action)
	s.True(received.Reshare)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
