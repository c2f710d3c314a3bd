// Package assets forwards catalog image URLs to the background asset-caching
// agent. The agent is an external collaborator; the only contract is the
// CACHE_ASSETS message on its queue.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type CacheAssetsMessage struct {
	Type string   `json:"type"`
	URLs []string `json:"urls"`
}

type Courier interface {
	PublishCacheAssets(urls []string) error
}

// AMQPCourier publishes CACHE_ASSETS messages to a durable queue.
type AMQPCourier struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func DialCourier(amqpURL, queue string) (*AMQPCourier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("asset courier dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("asset courier channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("asset courier declare %s: %w", queue, err)
	}
	return &AMQPCourier{conn: conn, ch: ch, queue: queue}, nil
}

func (c *AMQPCourier) PublishCacheAssets(urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	body, err := json.Marshal(CacheAssetsMessage{Type: "CACHE_ASSETS", URLs: urls})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.ch.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (c *AMQPCourier) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// NopCourier is used when no agent endpoint is configured.
type NopCourier struct{}

func (NopCourier) PublishCacheAssets([]string) error { return nil }
