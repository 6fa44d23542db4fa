package emitters

import (
	"context"
	"contract-orchestrator/internal/models"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestEmitter(w *fakeWriter) *KafkaEmitter {
	logger := zerolog.Nop()
	return &KafkaEmitter{writer: w, logger: &logger}
}

func TestKafkaEmitterWritesEvent(t *testing.T) {
	w := &fakeWriter{}
	emitter := newTestEmitter(w)

	event := models.OperationEvent{
		Contract:    models.Wallet,
		Operation:   "approveTransaction",
		TxHash:      "0xfeed",
		BlockNumber: 12,
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, emitter.EmitEvent(event))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "0xfeed", string(msg.Key))
	var decoded models.OperationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
	assert.Equal(t, "wallet", string(msg.Headers[0].Value))
}

func TestKafkaEmitterErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	emitter := newTestEmitter(w)

	err := emitter.EmitEvent(models.OperationEvent{TxHash: "0x1"})
	assert.ErrorContains(t, err, "leader not available")

	require.NoError(t, emitter.Close())
	assert.True(t, w.closed)
	assert.Error(t, emitter.EmitEvent(models.OperationEvent{TxHash: "0x2"}))
	assert.NoError(t, emitter.Close())
}

type countingEmitter struct {
	events int
	err    error
}

func (c *countingEmitter) EmitEvent(models.OperationEvent) error {
	c.events++
	return c.err
}

func TestFanoutReachesEveryEmitter(t *testing.T) {
	failing := &countingEmitter{err: errors.New("ledger down")}
	ok := &countingEmitter{}

	err := Fanout{failing, ok}.EmitEvent(models.OperationEvent{TxHash: "0x1"})
	assert.ErrorContains(t, err, "ledger down")
	assert.Equal(t, 1, failing.events)
	assert.Equal(t, 1, ok.events)

	assert.NoError(t, Fanout{}.EmitEvent(models.OperationEvent{}))
}
