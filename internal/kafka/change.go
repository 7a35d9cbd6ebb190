package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/segmentio/kafka-go"
)

// DecodeChange parses a booking change message written by Publish.
func DecodeChange(msg kafka.Message) (domain.ChangeEvent, error) {
	var event domain.ChangeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return event, fmt.Errorf("decode change event: %w", err)
	}
	if _, err := domain.ParseChangeKind(string(event.Kind)); err != nil {
		return event, err
	}
	if event.Row.ID == "" {
		return event, fmt.Errorf("decode change event: missing row id")
	}
	return event, nil
}
