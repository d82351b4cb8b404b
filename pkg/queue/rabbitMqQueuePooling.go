package queue

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

type pooledChannel struct {
	channel     *amqp.Channel
	notifyClose chan *amqp.Error
}

func newConnection(settings *config.QueueSettings) (*amqp.Connection, error) {
	conn, err := amqp.Dial(settings.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	// Set up a channel to handle connection close notifications
	notifyClose := make(chan *amqp.Error)
	conn.NotifyClose(notifyClose)
	go func() {
		for err := range notifyClose {
			logrus.WithError(err).Warn("RabbitMQ connection closed")
		}
	}()

	return conn, nil
}

func (r *rabbitMqQueue) connectAndInitialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Close existing connection if it exists
	if r.connection != nil && !r.connection.IsClosed() {
		r.connection.Close()
	}

	// Establish a new connection
	connection, err := newConnection(r.settings)
	if err != nil {
		return err
	}
	r.connection = connection

	// Rebuild the channel pool
	if r.channelPool != nil {
		close(r.channelPool)
		for pooledChan := range r.channelPool {
			pooledChan.channel.Close()
		}
	}
	r.channelPool = make(chan *pooledChannel, r.settings.PoolSize)

	for i := 0; i < r.settings.PoolSize; i++ {
		channel, err := connection.Channel()
		if err != nil {
			return err
		}
		r.channelPool <- &pooledChannel{
			channel:     channel,
			notifyClose: channel.NotifyClose(make(chan *amqp.Error)),
		}
	}

	logrus.Info("RabbitMQ connection and channel pool initialized")
	return nil
}

func (r *rabbitMqQueue) recoverConnection() {
	for {
		select {
		case <-r.reconnectTicker.C:
			if r.connection == nil || r.connection.IsClosed() {
				logrus.Info("Attempting to reconnect to RabbitMQ...")
				if err := r.connectAndInitialize(); err != nil {
					logrus.WithError(err).Error("Failed to reconnect to RabbitMQ")
				} else {
					logrus.Info("Reconnected to RabbitMQ successfully")
				}
			}
		case <-r.stopReconnect:
			logrus.Info("Stopping RabbitMQ connection recovery")
			return
		}
	}
}

func (r *rabbitMqQueue) getChannel() (*pooledChannel, error) {
	for {
		select {
		case pooledChan := <-r.channelPool:
			select {
			case err := <-pooledChan.notifyClose:
				// Channel is closed, discard it
				logrus.WithError(err).Debug("Discarding closed channel")
				continue
			default:
				// Channel is valid
				return pooledChan, nil
			}
		default:
			// Create a new channel if none are available
			channel, err := r.connection.Channel()
			if err != nil {
				return nil, err
			}
			return &pooledChannel{
				channel:     channel,
				notifyClose: channel.NotifyClose(make(chan *amqp.Error)),
			}, nil
		}
	}
}

func (r *rabbitMqQueue) releaseChannel(pooledChan *pooledChannel) {
	select {
	case err := <-pooledChan.notifyClose:
		// Channel is closed, discard it
		logrus.WithError(err).Debug("Discarding closed channel")
		return
	default:
		// Channel is valid, return it to the pool
		select {
		case r.channelPool <- pooledChan:
		default:
			// Pool is full, close the channel
			pooledChan.channel.Close()
		}
	}
}
