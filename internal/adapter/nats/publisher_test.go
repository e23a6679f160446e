package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/config"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	subject string
	data    []byte
}

type fakeConn struct {
	failures int
	sent     []sent
	attempts int
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.attempts++
	if f.attempts <= f.failures {
		return errors.New("nats: connection closed")
	}
	f.sent = append(f.sent, sent{subject: subject, data: data})
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error { return nil }

func testPublisher(nc conn, prefix string, retries int) *Publisher {
	p := newPublisher(nc, config.NATSConfig{SubjectPrefix: prefix, MaxRetries: retries}, logger.Nop())
	p.retryDelay = time.Millisecond
	return p
}

func TestSubjects(t *testing.T) {
	p := testPublisher(&fakeConn{}, "shop.", 1)
	assert.Equal(t, "shop.order.transitioned", p.EventSubject(interfaces.EventOrderTransitioned))
	assert.Equal(t, "shop.labels.print", p.LabelsSubject())

	bare := testPublisher(&fakeConn{}, "", 1)
	assert.Equal(t, "order.created", bare.EventSubject(interfaces.EventOrderCreated))
}

func TestPublishOrderChanged_RetriesThenSucceeds(t *testing.T) {
	nc := &fakeConn{failures: 2}
	p := testPublisher(nc, "shop", 3)

	err := p.PublishOrderChanged(context.Background(), interfaces.OrderChangedMessage{
		OrderID: "ORD-7",
		Event:   interfaces.EventOrderPaid,
		Version: 3,
	})
	require.NoError(t, err)
	require.Len(t, nc.sent, 1)
	assert.Equal(t, "shop.order.paid", nc.sent[0].subject)

	var decoded interfaces.OrderChangedMessage
	require.NoError(t, json.Unmarshal(nc.sent[0].data, &decoded))
	assert.Equal(t, "ORD-7", decoded.OrderID)
	assert.Equal(t, int64(3), decoded.Version)
}

func TestPublish_GivesUp(t *testing.T) {
	nc := &fakeConn{failures: 10}
	p := testPublisher(nc, "", 2)

	err := p.PrintLabels(context.Background(), interfaces.LabelBatch{BatchID: "b"})
	assert.Error(t, err)
	assert.Equal(t, 2, nc.attempts)
	assert.Empty(t, nc.sent)
}

func TestPublish_ZeroRetriesStillTriesOnce(t *testing.T) {
	nc := &fakeConn{}
	p := testPublisher(nc, "", 0)

	require.NoError(t, p.PrintLabels(context.Background(), interfaces.LabelBatch{BatchID: "b"}))
	assert.Len(t, nc.sent, 1)
}

func TestDialWithRetry_NoWaitAfterLastAttempt(t *testing.T) {
	calls := 0
	dial := func() (*nats.Conn, error) {
		calls++
		return nil, errors.New("connection refused")
	}

	delay := 200 * time.Millisecond
	start := time.Now()
	_, err := dialWithRetry(context.Background(), dial, delay, logger.Nop())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, connectAttempts, calls)
	assert.GreaterOrEqual(t, elapsed, time.Duration(connectAttempts-1)*delay)
	assert.Less(t, elapsed, time.Duration(connectAttempts)*delay)
}

func TestDialWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	dial := func() (*nats.Conn, error) {
		calls++
		return nil, errors.New("connection refused")
	}

	_, err := dialWithRetry(ctx, dial, time.Hour, logger.Nop())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDialWithRetry_ReturnsFirstConnection(t *testing.T) {
	calls := 0
	want := &nats.Conn{}
	dial := func() (*nats.Conn, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("connection refused")
		}
		return want, nil
	}

	nc, err := dialWithRetry(context.Background(), dial, time.Millisecond, logger.Nop())
	require.NoError(t, err)
	assert.Same(t, want, nc)
	assert.Equal(t, 2, calls)
}
