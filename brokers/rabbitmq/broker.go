package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BranchIntl/silex/core"
	"github.com/BranchIntl/silex/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQBroker implements core.Broker on durable AMQP queues. Messages are
// published to the default exchange with the queue name as routing key and
// fetched with basic.get.
type RabbitMQBroker struct {
	connection     *amqp.Connection
	channel        *amqp.Channel
	options        Options
	declaredQueues map[string]bool
	mu             sync.RWMutex
	// opMu serializes synchronous calls on the shared channel
	opMu        sync.Mutex
	notifyClose chan *amqp.Error
	isConnected bool
	closing     bool
	logger      *slog.Logger
}

var _ core.Broker = (*RabbitMQBroker)(nil)

// NewBroker creates a new RabbitMQ broker
func NewBroker(options Options) *RabbitMQBroker {
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultOptions().PollInterval
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RabbitMQBroker{
		options:        options,
		declaredQueues: make(map[string]bool),
		logger:         logger.With("broker", "rabbitmq"),
	}
}

// Connect establishes connection to RabbitMQ. It is a no-op when already
// connected.
func (r *RabbitMQBroker) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isConnected {
		return nil
	}
	r.closing = false
	return r.connect()
}

// connect dials, opens the channel and starts close monitoring. The caller
// must hold the lock.
func (r *RabbitMQBroker) connect() error {
	config := amqp.Config{
		Heartbeat: r.options.Heartbeat,
		Locale:    "en_US",
	}
	if r.options.ConnectTimeout > 0 {
		config.Dial = amqp.DefaultDial(r.options.ConnectTimeout)
	}

	conn, err := amqp.DialConfig(r.options.URI, config)
	if err != nil {
		return errors.NewConnectionError(r.redactedURI(),
			fmt.Errorf("failed to connect to RabbitMQ: %w", err))
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.NewConnectionError(r.redactedURI(),
			fmt.Errorf("failed to open channel: %w", err))
	}

	r.connection = conn
	r.setChannel(ch)

	r.notifyClose = make(chan *amqp.Error, 1)
	r.connection.NotifyClose(r.notifyClose)
	r.isConnected = true

	go r.handleReconnection(r.notifyClose)

	return nil
}

// setChannel installs ch as the shared channel, forgets which queues were
// declared on the previous one and starts watching ch for channel-level
// exceptions. The caller must hold the lock.
func (r *RabbitMQBroker) setChannel(ch *amqp.Channel) {
	r.channel = ch
	r.declaredQueues = make(map[string]bool)
	go r.watchChannel(ch, ch.NotifyClose(make(chan *amqp.Error, 1)))
}

// watchChannel waits for the server to close ch, for example after a 404 on
// a passive declare or a 406 on mismatched queue arguments, and recovers
// the channel while the connection is still open.
func (r *RabbitMQBroker) watchChannel(ch *amqp.Channel, notifyClose <-chan *amqp.Error) {
	err, ok := <-notifyClose
	if !ok || err == nil {
		return
	}
	r.recoverChannel(ch, err)
}

// recoverChannel drops a closed channel and opens a replacement when the
// connection is still usable. If that fails the channel stays nil and the
// next getChannel retries.
func (r *RabbitMQBroker) recoverChannel(ch *amqp.Channel, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing || r.channel != ch {
		return
	}
	r.logger.Warn("Channel closed", "error", cause)

	r.channel = nil
	r.declaredQueues = make(map[string]bool)

	if _, err := r.reopenChannel(); err != nil {
		r.logger.Warn("Failed to reopen channel", "error", err)
		return
	}
	r.logger.Info("Channel reopened")
}

// reopenChannel opens a new channel on the current connection. The caller
// must hold the lock.
func (r *RabbitMQBroker) reopenChannel() (*amqp.Channel, error) {
	if !r.isConnected || r.connection == nil || r.connection.IsClosed() {
		return nil, errors.ErrNotConnected
	}

	ch, err := r.connection.Channel()
	if err != nil {
		return nil, errors.NewConnectionError(r.redactedURI(),
			fmt.Errorf("failed to reopen channel: %w", err))
	}
	r.setChannel(ch)
	return ch, nil
}

// handleReconnection marks the broker disconnected when the connection
// closes and, if enabled, dials again every ReconnectDelay.
func (r *RabbitMQBroker) handleReconnection(notifyClose <-chan *amqp.Error) {
	err, ok := <-notifyClose
	if !ok || err == nil {
		// Graceful shutdown
		return
	}

	r.mu.Lock()
	r.isConnected = false
	r.channel = nil
	r.mu.Unlock()

	if !r.options.ReconnectEnabled {
		r.logger.Warn("Connection closed", "error", err)
		return
	}
	r.logger.Warn("Connection closed, reconnecting...", "error", err)

	for {
		time.Sleep(r.options.ReconnectDelay)

		r.mu.Lock()
		if r.closing || r.isConnected {
			r.mu.Unlock()
			return
		}
		err := r.connect()
		r.mu.Unlock()

		if err == nil {
			r.logger.Info("Reconnected to RabbitMQ")
			return
		}
		r.logger.Warn("Reconnect failed", "error", err)
	}
}

// Close closes the RabbitMQ connection
func (r *RabbitMQBroker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closing = true
	r.isConnected = false

	if r.channel != nil {
		if err := r.channel.Close(); err != nil && err != amqp.ErrClosed {
			return err
		}
		r.channel = nil
	}
	if r.connection != nil {
		conn := r.connection
		r.connection = nil
		if err := conn.Close(); err != nil && err != amqp.ErrClosed {
			return err
		}
	}
	return nil
}

// Health checks the RabbitMQ connection health
func (r *RabbitMQBroker) Health() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isConnected || r.connection == nil || r.connection.IsClosed() {
		return errors.ErrNotConnected
	}
	if r.channel == nil || r.channel.IsClosed() {
		return errors.NewConnectionError(r.redactedURI(), errors.ErrChannelClosed)
	}
	return nil
}

// Type returns the broker type
func (r *RabbitMQBroker) Type() string {
	return "rabbitmq"
}

// Push publishes a persistent message to the named queue
func (r *RabbitMQBroker) Push(ctx context.Context, queue string, message string) error {
	if queue == "" {
		return errors.ErrEmptyQueueName
	}

	channel, err := r.getChannel()
	if err != nil {
		return err
	}

	if err := r.ensureQueue(channel, queue); err != nil {
		return errors.NewQueueError("ensure_queue", queue, err)
	}

	r.opMu.Lock()
	err = channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key (queue name)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "text/plain",
			Body:         []byte(message),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	r.opMu.Unlock()

	if err != nil {
		return errors.NewQueueError("push", queue, err)
	}

	return nil
}

// Pop fetches the oldest message from the queue, polling every
// PollInterval until one arrives or timeout elapses. A timeout of zero or
// less makes a single attempt.
func (r *RabbitMQBroker) Pop(ctx context.Context, queue string, timeout time.Duration) (string, bool, error) {
	if queue == "" {
		return "", false, errors.ErrEmptyQueueName
	}

	channel, err := r.getChannel()
	if err != nil {
		return "", false, err
	}

	if err := r.ensureQueue(channel, queue); err != nil {
		return "", false, errors.NewQueueError("ensure_queue", queue, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		r.opMu.Lock()
		delivery, ok, err := channel.Get(queue, true)
		r.opMu.Unlock()

		if err != nil {
			return "", false, errors.NewQueueError("pop", queue, err)
		}
		if ok {
			return string(delivery.Body), true, nil
		}

		delay := pollDelay(r.options.PollInterval, deadline)
		if delay <= 0 {
			return "", false, nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", false, ctx.Err()
		}
	}
}

// CreateQueue declares a durable queue with the given options
func (r *RabbitMQBroker) CreateQueue(ctx context.Context, name string, options QueueOptions) error {
	channel, err := r.getChannel()
	if err != nil {
		return err
	}

	if err := r.declareQueue(channel, name, options); err != nil {
		return errors.NewQueueError("create_queue", name, err)
	}
	return nil
}

// DeleteQueue deletes a queue
func (r *RabbitMQBroker) DeleteQueue(ctx context.Context, name string) error {
	channel, err := r.getChannel()
	if err != nil {
		return err
	}

	r.opMu.Lock()
	_, err = channel.QueueDelete(name, false, false, false)
	r.opMu.Unlock()
	if err != nil {
		return errors.NewQueueError("delete_queue", name, err)
	}

	r.mu.Lock()
	delete(r.declaredQueues, name)
	r.mu.Unlock()
	return nil
}

// QueueLength returns the number of ready messages in a queue
func (r *RabbitMQBroker) QueueLength(ctx context.Context, name string) (int64, error) {
	channel, err := r.getChannel()
	if err != nil {
		return 0, err
	}

	r.opMu.Lock()
	queue, err := channel.QueueDeclarePassive(name, true, false, false, false, nil)
	r.opMu.Unlock()
	if err != nil {
		return 0, errors.NewQueueError("queue_length", name, err)
	}
	return int64(queue.Messages), nil
}

// getChannel returns the shared channel, reopening it when a channel-level
// exception closed it. It returns ErrNotConnected without a connection.
func (r *RabbitMQBroker) getChannel() (*amqp.Channel, error) {
	r.mu.RLock()
	ch, connected := r.channel, r.isConnected
	r.mu.RUnlock()

	if !connected {
		return nil, errors.ErrNotConnected
	}
	if ch != nil && !ch.IsClosed() {
		return ch, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil && !r.channel.IsClosed() {
		return r.channel, nil
	}
	return r.reopenChannel()
}

// ensureQueue declares a queue with the broker-wide options the first time
// it is used
func (r *RabbitMQBroker) ensureQueue(channel *amqp.Channel, name string) error {
	r.mu.RLock()
	declared := r.declaredQueues[name]
	r.mu.RUnlock()

	if declared {
		return nil
	}
	return r.declareQueue(channel, name, r.options.Queue)
}

func (r *RabbitMQBroker) declareQueue(channel *amqp.Channel, name string, options QueueOptions) error {
	r.opMu.Lock()
	_, err := channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		buildQueueArgs(options),
	)
	r.opMu.Unlock()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.declaredQueues[name] = true
	r.mu.Unlock()
	return nil
}

// redactedURI returns the connection URI without credentials for errors
// and logs
func (r *RabbitMQBroker) redactedURI() string {
	uri, err := amqp.ParseURI(r.options.URI)
	if err != nil {
		return "invalid-uri"
	}
	return fmt.Sprintf("%s://%s:%d/%s", uri.Scheme, uri.Host, uri.Port, strings.TrimPrefix(uri.Vhost, "/"))
}
