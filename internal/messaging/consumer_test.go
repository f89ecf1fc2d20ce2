package messaging

import (
	"context"
	"testing"
	"time"

	"million-words-server/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeAcknowledger struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestHandleDelivery_DispatchesAndAcks(t *testing.T) {
	var got []models.StoryEvent
	c := &StoryEventConsumer{
		handler: StoryEventHandlerFunc(func(_ context.Context, e models.StoryEvent) { got = append(got, e) }),
		logger:  zap.NewNop(),
	}
	ack := &fakeAcknowledger{}

	c.handleDelivery(context.Background(), amqp091.Delivery{
		Acknowledger: ack,
		DeliveryTag:  7,
		Body:         []byte(`{"type":"approved","storyId":"s1","status":"approved","at":"2024-05-01T12:00:00Z"}`),
	})

	if assert.Len(t, got, 1) {
		assert.Equal(t, models.StoryEventApproved, got[0].Type)
		assert.Equal(t, "s1", got[0].StoryID)
		assert.True(t, got[0].At.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	}
	assert.Equal(t, []uint64{7}, ack.acked)
	assert.Empty(t, ack.nacked)
}

func TestHandleDelivery_DropsMalformed(t *testing.T) {
	called := false
	c := &StoryEventConsumer{
		handler: StoryEventHandlerFunc(func(context.Context, models.StoryEvent) { called = true }),
		logger:  zap.NewNop(),
	}
	ack := &fakeAcknowledger{}

	c.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("{oops")})

	assert.False(t, called)
	assert.Empty(t, ack.acked)
	assert.Equal(t, []uint64{3}, ack.nacked)
	assert.Equal(t, []bool{false}, ack.requeue)
}
