package pubsub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind EventKind
		wantErr  error
	}{
		{
			name:     "subscribe",
			input:    `{"event":"pusher:subscribe","data":{"channel":"chat"}}`,
			wantKind: KindSubscribe,
		},
		{
			name:     "unsubscribe",
			input:    `{"event":"pusher:unsubscribe","data":{"channel":"chat"}}`,
			wantKind: KindUnsubscribe,
		},
		{
			name:     "ping",
			input:    `{"event":"pusher:ping"}`,
			wantKind: KindPing,
		},
		{
			name:     "client auth",
			input:    `{"event":"client-auth","auth":"token"}`,
			wantKind: KindClientAuth,
		},
		{
			name:     "connection established echo",
			input:    `{"event":"pusher:connection_established"}`,
			wantKind: KindConnectionEstablished,
		},
		{
			name:     "unknown event",
			input:    `{"event":"client-typing"}`,
			wantKind: KindUnknown,
		},
		{
			name:     "missing event field",
			input:    `{"data":{}}`,
			wantKind: KindUnknown,
		},
		{
			name:    "invalid json",
			input:   `{"event":`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "not an object",
			input:   `"pusher:ping"`,
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, kind, err := DecodeFrame([]byte(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, frame)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestFrameChannelName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "object data",
			input: `{"event":"pusher:subscribe","data":{"channel":"private-user.42"}}`,
			want:  "private-user.42",
		},
		{
			name:  "string encoded data",
			input: `{"event":"pusher:subscribe","data":"{\"channel\":\"chat\"}"}`,
			want:  "chat",
		},
		{
			name:  "missing data",
			input: `{"event":"pusher:subscribe"}`,
			want:  "",
		},
		{
			name:  "data without channel",
			input: `{"event":"pusher:subscribe","data":{"auth":"x"}}`,
			want:  "",
		},
		{
			name:  "empty channel",
			input: `{"event":"pusher:subscribe","data":{"channel":""}}`,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, _, err := DecodeFrame([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, frame.ChannelName())
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	data, err := EncodeFrame("answer.generated", "chat", map[string]string{"answer": "blue"})
	require.NoError(t, err)

	var envelope struct {
		Event   string `json:"event"`
		Channel string `json:"channel"`
		Data    string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "answer.generated", envelope.Event)
	assert.Equal(t, "chat", envelope.Channel)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(envelope.Data), &payload))
	assert.Equal(t, "blue", payload["answer"])
}

func TestEncodeFrameOmitsEmptyChannel(t *testing.T) {
	data, err := EncodeFrame(EventNamePong, "", struct{}{})
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "channel")
}

func TestEncodeErrorFrame(t *testing.T) {
	data, err := EncodeErrorFrame("Access denied to channel: private-user.7")
	require.NoError(t, err)

	frame := decodeSentFrame(t, data)
	assert.Equal(t, EventNameError, frame.Event)
	assert.Equal(t, "Access denied to channel: private-user.7", frame.Data["message"])
	assert.Equal(t, float64(4001), frame.Data["code"])
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "subscribe", KindSubscribe.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "ping", KindPing.String())
}
