package interceptors

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/glimte/interim-go/invocation"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditRecordType is the AMQP message type of published audit records
const AuditRecordType = "invocation.audit"

// AuditPublisher publishes AMQP messages. *amqp.Channel satisfies it.
type AuditPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AuditRecord describes one finished invocation
type AuditRecord struct {
	ID           string        `json:"id"`
	InvocationID string        `json:"invocationId"`
	Target       string        `json:"target"`
	Method       string        `json:"method"`
	Params       int           `json:"params"`
	Outcome      string        `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	Attributes   []string      `json:"attributes,omitempty"`
	Duration     time.Duration `json:"duration"`
	Timestamp    time.Time     `json:"timestamp"`
}

// AuditInterceptor publishes an AuditRecord for every invocation once the
// rest of the chain has returned. Publish failures are logged and never
// change the invocation result.
type AuditInterceptor struct {
	publisher  AuditPublisher
	exchange   string
	routingKey string
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuditInterceptor creates a new audit interceptor
func NewAuditInterceptor(publisher AuditPublisher, exchange, routingKey string) *AuditInterceptor {
	return &AuditInterceptor{
		publisher:  publisher,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     slog.Default(),
		now:        time.Now,
	}
}

// WithLogger sets the logger for the audit interceptor
func (i *AuditInterceptor) WithLogger(logger *slog.Logger) *AuditInterceptor {
	if logger != nil {
		i.logger = logger
	}
	return i
}

// Invoke implements invocation.Interception
func (i *AuditInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	start := i.now()
	result, err := ic.Proceed()

	record := AuditRecord{
		ID:           uuid.New().String(),
		InvocationID: ic.ID(),
		Target:       targetName(ic),
		Method:       ic.Method().Name(),
		Params:       len(ic.Parameters()),
		Outcome:      "success",
		Attributes:   ic.ContextData().Keys(),
		Duration:     i.now().Sub(start),
		Timestamp:    start.UTC(),
	}
	if err != nil {
		record.Outcome = "error"
		record.Error = err.Error()
	}

	if pubErr := i.publish(ic.Context(), record); pubErr != nil {
		i.logger.Warn("failed to publish audit record",
			"invocationId", ic.ID(),
			"method", record.Method,
			"exchange", i.exchange,
			"error", pubErr,
		)
	}

	return result, err
}

func (i *AuditInterceptor) publish(ctx context.Context, record AuditRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return i.publisher.PublishWithContext(ctx, i.exchange, i.routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     record.ID,
		CorrelationId: record.InvocationID,
		Timestamp:     record.Timestamp,
		Type:          AuditRecordType,
		Body:          body,
	})
}

// Name implements invocation.Named
func (i *AuditInterceptor) Name() string {
	return "AuditInterceptor"
}
