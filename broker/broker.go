package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const reconnectDelay = 2 * time.Second

// ErrNotConnected is returned while the broker is between connections
var ErrNotConnected = errors.New("broker is not connected")

// Service owns the RabbitMQ connection the dashboard receives request
// updates on. The backend publishes every created or updated request to a
// fanout exchange; the dashboard binds its own durable queue to it.
type Service struct {
	url       string
	exchange  string
	queueName string
	logger    *logrus.Entry

	mu       sync.RWMutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	closeErr chan *amqp.Error
}

// NewService connects to RabbitMQ and declares the exchange and queue
func NewService(url, exchange, queueName string, logger *logrus.Entry) (*Service, error) {
	s := &Service{
		url:       url,
		exchange:  exchange,
		queueName: queueName,
		logger:    logger,
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) connect() error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, s.exchange, s.queueName); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	closeErr := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeErr)

	s.mu.Lock()
	s.conn = conn
	s.channel = ch
	s.closeErr = closeErr
	s.mu.Unlock()
	return nil
}

func declare(ch *amqp.Channel, exchange, queueName string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	args := make(amqp.Table)
	// Dead letter exchange name
	args["x-dead-letter-exchange"] = "dead.letter.ex"
	q, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		args,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return ch.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
}

// Consume starts delivering messages from the dashboard queue. The returned
// channel is closed when the connection drops.
func (s *Service) Consume() (<-chan amqp.Delivery, error) {
	ch := s.GetChannel()
	if ch == nil {
		return nil, ErrNotConnected
	}
	return ch.Consume(
		s.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
}

// WatchForReconnect will monitor the connection for disruption and
// re-establish a new connection and channel until ctx is done
func (s *Service) WatchForReconnect(ctx context.Context) {
	log := s.logger
	for {
		s.mu.RLock()
		closeErr := s.closeErr
		s.mu.RUnlock()

		select {
		case <-ctx.Done():
			return
		case err, ok := <-closeErr:
			if !ok {
				// closed on purpose through Close
				return
			}
			log.WithFields(logrus.Fields{
				"err": err.Error(),
			}).Warn("RabbitMQ connection lost. Reconnecting")
		}

		s.mu.Lock()
		s.conn, s.channel = nil, nil
		s.mu.Unlock()
		for {
			if err := s.connect(); err == nil {
				log.Info("RabbitMQ connection re-established")
				break
			} else {
				log.WithFields(logrus.Fields{
					"err": err.Error(),
				}).Error("Unable to reconnect to RabbitMQ")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}
}

// GetChannel returns the current channel, nil while reconnecting
func (s *Service) GetChannel() *amqp.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel
}

// Close shuts the channel and connection down
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
