package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes events to an analytics topic. Publish errors are
// logged and swallowed; a broker outage never surfaces to the caller.
type KafkaSink struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaSink(topic string, brokers ...string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w, timeout: 5 * time.Second}
}

func (s *KafkaSink) Track(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("tracking: failed to marshal event %q: %v", event.Name, err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(fmt.Sprint(event.UserID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_name", Value: []byte(event.Name)},
		},
	}
	if errWrite := s.writer.WriteMessages(writeCtx, msg); errWrite != nil {
		log.Printf("tracking: failed to publish event %q: %v", event.Name, errWrite)
	}
}

func (s *KafkaSink) Close() {
	if err := s.writer.Close(); err != nil {
		log.Printf("tracking: error closing writer: %v", err)
	}
}

// LogSink writes events to the process log, used in development builds.
type LogSink struct{}

func (LogSink) Track(_ context.Context, event Event) {
	log.Printf("tracking: %s user=%d props=%v", event.Name, event.UserID, event.Props)
}
