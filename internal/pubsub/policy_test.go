package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanSubscribeIdentity(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		identity      string
		channel       string
		want          bool
	}{
		{
			name:          "unauthenticated public channel",
			authenticated: false,
			channel:       "chat",
			want:          false,
		},
		{
			name:          "unauthenticated presence channel",
			authenticated: false,
			channel:       "presence-lobby",
			want:          false,
		},
		{
			name:          "unauthenticated own private channel",
			authenticated: false,
			identity:      "42",
			channel:       "private-user.42",
			want:          false,
		},
		{
			name:          "matching private channel",
			authenticated: true,
			identity:      "42",
			channel:       "private-user.42",
			want:          true,
		},
		{
			name:          "foreign private channel",
			authenticated: true,
			identity:      "42",
			channel:       "private-user.7",
			want:          false,
		},
		{
			name:          "identity is prefix of target",
			authenticated: true,
			identity:      "4",
			channel:       "private-user.42",
			want:          false,
		},
		{
			name:          "target is prefix of identity",
			authenticated: true,
			identity:      "42",
			channel:       "private-user.4",
			want:          false,
		},
		{
			name:          "empty suffix private channel",
			authenticated: true,
			identity:      "42",
			channel:       "private-user.",
			want:          false,
		},
		{
			name:          "presence channel",
			authenticated: true,
			identity:      "42",
			channel:       "presence-lobby",
			want:          true,
		},
		{
			name:          "public chat channel",
			authenticated: true,
			identity:      "42",
			channel:       "chat",
			want:          true,
		},
		{
			name:          "arbitrary channel",
			authenticated: true,
			identity:      "42",
			channel:       "announcements",
			want:          true,
		},
		{
			name:          "prefix without separator is not private",
			authenticated: true,
			identity:      "42",
			channel:       "private-users.42",
			want:          true,
		},
		{
			name:          "uuid identity match",
			authenticated: true,
			identity:      "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
			channel:       "private-user.a1b2c3d4-e5f6-7890-abcd-ef1234567890",
			want:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanSubscribeIdentity(tt.authenticated, tt.identity, tt.channel)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanSubscribe(t *testing.T) {
	t.Run("uses session auth state", func(t *testing.T) {
		s, _ := newTestSession(t)
		assert.False(t, CanSubscribe(s, "chat"))

		s.MarkAuthenticated("42")
		assert.True(t, CanSubscribe(s, "chat"))
		assert.True(t, CanSubscribe(s, "private-user.42"))
		assert.False(t, CanSubscribe(s, "private-user.7"))
	})
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ClassPrivate, ClassOf("private-user.42"))
	assert.Equal(t, ClassPresence, ClassOf("presence-lobby"))
	assert.Equal(t, ClassPublic, ClassOf("chat"))
	assert.Equal(t, ClassPublic, ClassOf(""))
}

func TestPrivateUserChannel(t *testing.T) {
	assert.Equal(t, "private-user.42", PrivateUserChannel("42"))
}
