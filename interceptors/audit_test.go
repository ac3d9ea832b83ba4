package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/glimte/interim-go/invocation"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func fixedClock(times ...time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		t := times[n]
		if n < len(times)-1 {
			n++
		}
		return t
	}
}

func TestAuditInterceptor(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("publishes a record for successful invocations", func(t *testing.T) {
		publisher := &mockPublisher{}
		var published amqp.Publishing
		publisher.On("PublishWithContext", mock.Anything, "audit", "invocations", false, false, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
			Return(nil).Once()

		interceptor := NewAuditInterceptor(publisher, "audit", "invocations")
		interceptor.now = fixedClock(start, start.Add(15*time.Millisecond))

		tag := invocation.InterceptionFunc(func(ic invocation.InvocationContext) (any, error) {
			ic.ContextData().Set("tenant", "acme")
			return ic.Proceed()
		})

		result, err := invoke(t, &calculator{}, "Add", []invocation.Interception{interceptor, tag}, 2, 3)

		require.NoError(t, err)
		assert.Equal(t, 5, result)
		publisher.AssertExpectations(t)

		assert.Equal(t, "application/json", published.ContentType)
		assert.Equal(t, amqp.Persistent, published.DeliveryMode)
		assert.Equal(t, AuditRecordType, published.Type)
		assert.Equal(t, start, published.Timestamp)

		var record AuditRecord
		require.NoError(t, json.Unmarshal(published.Body, &record))
		assert.Equal(t, published.MessageId, record.ID)
		assert.Equal(t, published.CorrelationId, record.InvocationID)
		assert.Equal(t, "*interceptors.calculator", record.Target)
		assert.Equal(t, "Add", record.Method)
		assert.Equal(t, 2, record.Params)
		assert.Equal(t, "success", record.Outcome)
		assert.Empty(t, record.Error)
		assert.Equal(t, []string{"tenant"}, record.Attributes)
		assert.Equal(t, 15*time.Millisecond, record.Duration)
	})

	t.Run("records the failure of failed invocations", func(t *testing.T) {
		publisher := &mockPublisher{}
		var published amqp.Publishing
		publisher.On("PublishWithContext", mock.Anything, "audit", "", false, false, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
			Return(nil).Once()

		_, err := invoke(t, &calculator{}, "Divide", []invocation.Interception{
			NewAuditInterceptor(publisher, "audit", ""),
		}, 1, 0)

		assert.ErrorIs(t, err, errDivByZero)

		var record AuditRecord
		require.NoError(t, json.Unmarshal(published.Body, &record))
		assert.Equal(t, "error", record.Outcome)
		assert.Equal(t, "division by zero", record.Error)
	})

	t.Run("publish failures are logged and do not change the result", func(t *testing.T) {
		publisher := &mockPublisher{}
		publisher.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
			Return(errors.New("channel closed")).Once()

		var buf bytes.Buffer
		result, err := invoke(t, &calculator{}, "Add", []invocation.Interception{
			NewAuditInterceptor(publisher, "audit", "invocations").WithLogger(bufferLogger(&buf)),
		}, 1, 1)

		require.NoError(t, err)
		assert.Equal(t, 2, result)
		assert.Contains(t, buf.String(), "failed to publish audit record")
		assert.Contains(t, buf.String(), "channel closed")
	})

	t.Run("short-circuited invocations are audited too", func(t *testing.T) {
		publisher := &mockPublisher{}
		publisher.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
			Return(nil).Once()

		calc := &calculator{}
		_, err := invoke(t, calc, "Add", []invocation.Interception{
			NewAuditInterceptor(publisher, "audit", "invocations"),
			NewDenyInterceptor(DenyRule{Name: "no-add", Methods: []string{"Add"}}),
		}, 1, 1)

		assert.ErrorIs(t, err, ErrDenied)
		assert.Zero(t, calc.calls)
		publisher.AssertExpectations(t)
	})
}
