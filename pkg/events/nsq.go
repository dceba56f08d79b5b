package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"
)

// NSQPublisher publishes PaymentEvents as JSON messages on one topic.
type NSQPublisher struct {
	producer *nsq.Producer
	topic    string
}

func NewNSQPublisher(addr, topic string) (*NSQPublisher, error) {
	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq producer: %w", err)
	}
	producer.SetLoggerLevel(nsq.LogLevelWarning)
	return &NSQPublisher{producer: producer, topic: topic}, nil
}

func (p *NSQPublisher) Publish(ctx context.Context, evt PaymentEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(p.topic, body); err != nil {
		return fmt.Errorf("nsq publish %s: %w", p.topic, err)
	}
	return nil
}

func (p *NSQPublisher) Stop() {
	p.producer.Stop()
}
