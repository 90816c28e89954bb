package audit

import "context"

// Publisher is satisfied by *mykafka.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// KafkaSink streams events to the security topic keyed by user, so one user's events stay ordered.
type KafkaSink struct {
	Pub   Publisher
	Topic string
}

func (s KafkaSink) Write(ctx context.Context, e Event) error {
	key := e.UserID
	if key == "" {
		key = e.ID
	}
	return s.Pub.PublishEvent(ctx, s.Topic, key, e)
}
