package amqp

import (
	"encoding/json"
	"time"

	"adstats/internal/core"

	"github.com/google/uuid"
)

// Sources of a refresh request.
const (
	SourceScheduler = "scheduler"
	SourceCLI       = "cli"
	SourceHTTP      = "http"
)

// RefreshRequestMessage asks a worker to run one aggregation.
// It carries no credential; the worker authenticates with its own provider.
type RefreshRequestMessage struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requestedAt"`
}

// NewRefreshRequestMessage creates a request with a fresh id
func NewRefreshRequestMessage(source string) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		ID:          uuid.NewString(),
		Source:      source,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestMessageFromJSON creates a message from JSON bytes
func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SummaryMessage is the event emitted after every finished run.
type SummaryMessage struct {
	ID          string         `json:"id"`
	Result      core.RunResult `json:"result"`
	PublishedAt time.Time      `json:"publishedAt"`
}

func NewSummaryMessage(res core.RunResult) *SummaryMessage {
	return &SummaryMessage{
		ID:          uuid.NewString(),
		Result:      res,
		PublishedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SummaryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SummaryMessageFromJSON creates a message from JSON bytes
func SummaryMessageFromJSON(data []byte) (*SummaryMessage, error) {
	var msg SummaryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
