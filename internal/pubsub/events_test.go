package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
}

func TestPublishQuestionProcessing(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, WithBroadcasterClock(fixedClock))

	owner, ownerConn := newAuthedSession(t, "42")
	bystander, bystanderConn := newAuthedSession(t, "7")
	r.Subscribe(owner, "private-user.42")
	r.Subscribe(bystander, "chat")

	delivered, err := b.PublishQuestionProcessing(context.Background(), QuestionProcessingEvent{
		QuestionID: "q-1",
		UserID:     "42",
		Question:   "Why is the sky blue?",
		Metadata:   map[string]any{"age_group": "6-8"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	frames := ownerConn.writtenFrames()
	require.Len(t, frames, 1)
	frame := decodeSentFrame(t, frames[0])
	assert.Equal(t, EventNameQuestionProcessing, frame.Event)
	assert.Equal(t, "private-user.42", frame.Channel)
	assert.Equal(t, "q-1", frame.Data["question_id"])
	assert.Equal(t, "42", frame.Data["user_id"])
	assert.Equal(t, "Why is the sky blue?", frame.Data["question"])
	assert.Equal(t, "processing", frame.Data["status"])
	assert.Equal(t, "question_processing", frame.Data["type"])
	assert.Equal(t, "2026-03-14T15:09:26Z", frame.Data["timestamp"])

	assert.Empty(t, bystanderConn.writtenFrames())
}

func TestPublishQuestionProcessingExplicitStatus(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r)

	owner, ownerConn := newAuthedSession(t, "42")
	r.Subscribe(owner, "private-user.42")

	_, err := b.PublishQuestionProcessing(context.Background(), QuestionProcessingEvent{
		QuestionID: "q-1",
		UserID:     "42",
		Question:   "Why?",
		Status:     "queued",
	})
	require.NoError(t, err)

	frame := decodeSentFrame(t, ownerConn.writtenFrames()[0])
	assert.Equal(t, "queued", frame.Data["status"])
}

func TestPublishAnswerGenerated(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, WithBroadcasterClock(fixedClock))

	owner, ownerConn := newAuthedSession(t, "42")
	listener, listenerConn := newAuthedSession(t, "7")
	r.Subscribe(owner, "private-user.42")
	r.Subscribe(owner, "chat")
	r.Subscribe(listener, "chat")

	delivered, err := b.PublishAnswerGenerated(context.Background(), AnswerGeneratedEvent{
		QuestionID: "q-1",
		UserID:     "42",
		Question:   "Why is the sky blue?",
		Answer:     "Sunlight scatters off the air.",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)

	ownerFrames := ownerConn.writtenFrames()
	require.Len(t, ownerFrames, 2)
	private := decodeSentFrame(t, ownerFrames[0])
	assert.Equal(t, EventNameAnswerGenerated, private.Event)
	assert.Equal(t, "private-user.42", private.Channel)
	assert.Equal(t, "Sunlight scatters off the air.", private.Data["answer"])
	assert.Equal(t, "answer_generated", private.Data["type"])

	shared := decodeSentFrame(t, ownerFrames[1])
	assert.Equal(t, ChatChannel, shared.Channel)

	listenerFrames := listenerConn.writtenFrames()
	require.Len(t, listenerFrames, 1)
	assert.Equal(t, ChatChannel, decodeSentFrame(t, listenerFrames[0]).Channel)
}

func TestPublishWithNoSubscribers(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r)

	delivered, err := b.PublishAnswerGenerated(context.Background(), AnswerGeneratedEvent{
		QuestionID: "q-1",
		UserID:     "42",
		Question:   "Why?",
		Answer:     "Because.",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
}
