package rabbitmq

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"go.uber.org/zap"
)

type ConsumerConfig struct {
	URL              string
	Queue            string
	Exchange         string
	DLQ              string
	StatusQueue      string
	RoutingKey       string
	StatusRoutingKey string
}

type acknowledger interface {
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
}

// Consumer reads work items from a durable queue one delivery at a time.
type Consumer struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	acks       acknowledger
	queue      string
	deliveries <-chan amqp.Delivery
	logger     *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, logger *zap.Logger) (*Consumer, error) {
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = "video.processing"
	}
	if cfg.StatusRoutingKey == "" {
		cfg.StatusRoutingKey = "video.status"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Consumer{conn: conn, channel: ch, acks: ch, queue: cfg.Queue, logger: logger}
	if err := c.declareTopology(cfg); err != nil {
		c.Close()
		return nil, err
	}

	// One unacknowledged delivery at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		c.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}
	c.deliveries = deliveries

	logger.Info("rabbitmq consumer ready", zap.String("queue", cfg.Queue), zap.String("exchange", cfg.Exchange))
	return c, nil
}

func (c *Consumer) declareTopology(cfg ConsumerConfig) error {
	if err := c.channel.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.Queue, cfg.DLQ, cfg.StatusQueue} {
		if q == "" {
			continue
		}
		if _, err := c.channel.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := c.channel.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind processing queue: %w", err)
	}
	if cfg.StatusQueue != "" {
		if err := c.channel.QueueBind(cfg.StatusQueue, cfg.StatusRoutingKey, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind status queue: %w", err)
		}
	}
	return nil
}

// Connection lets publishers share the consumer's connection.
func (c *Consumer) Connection() *amqp.Connection {
	return c.conn
}

func (c *Consumer) Receive(ctx context.Context, wait time.Duration) (*entity.Envelope, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, nil
	case <-timer.C:
		return nil, nil
	case d, ok := <-c.deliveries:
		if !ok {
			return nil, fmt.Errorf("%w: delivery channel for %s closed", entity.ErrQueueTransport, c.queue)
		}
		return envelopeFromDelivery(d), nil
	}
}

func envelopeFromDelivery(d amqp.Delivery) *entity.Envelope {
	id := d.MessageId
	if id == "" {
		id = uuid.NewString()
	}
	return &entity.Envelope{
		ID:      id,
		Body:    d.Body,
		Receipt: strconv.FormatUint(d.DeliveryTag, 10),
	}
}

func (c *Consumer) Parse(env *entity.Envelope) (*entity.WorkItem, error) {
	return entity.ParseWorkItem(env.Body)
}

func (c *Consumer) Acknowledge(_ context.Context, env *entity.Envelope) error {
	tag, err := deliveryTag(env)
	if err != nil {
		return err
	}
	if err := c.acks.Ack(tag, false); err != nil {
		return fmt.Errorf("%w: ack %s: %v", entity.ErrQueueTransport, env.ID, err)
	}
	return nil
}

// Release requeues the delivery. With a prefetch of one the broker sends
// nothing else to this consumer until it is acked or released.
func (c *Consumer) Release(_ context.Context, env *entity.Envelope) error {
	tag, err := deliveryTag(env)
	if err != nil {
		return err
	}
	if err := c.acks.Nack(tag, false, true); err != nil {
		return fmt.Errorf("%w: nack %s: %v", entity.ErrQueueTransport, env.ID, err)
	}
	c.logger.Debug("message requeued", zap.String("message_id", env.ID))
	return nil
}

func deliveryTag(env *entity.Envelope) (uint64, error) {
	tag, err := strconv.ParseUint(env.Receipt, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad delivery tag %q", entity.ErrQueueTransport, env.Receipt)
	}
	return tag, nil
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
