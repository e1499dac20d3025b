package jwt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "bare string",
			raw:  `"abc.def.ghi"`,
			want: "abc.def.ghi",
		},
		{
			name: "bare string with bearer prefix",
			raw:  `"Bearer abc.def.ghi"`,
			want: "abc.def.ghi",
		},
		{
			name: "token key",
			raw:  `{"token":"abc.def.ghi"}`,
			want: "abc.def.ghi",
		},
		{
			name: "access_token key",
			raw:  `{"access_token":"abc.def.ghi"}`,
			want: "abc.def.ghi",
		},
		{
			name: "jwt key",
			raw:  `{"jwt":"abc.def.ghi"}`,
			want: "abc.def.ghi",
		},
		{
			name: "token key wins over jwt key",
			raw:  `{"jwt":"second","token":"first"}`,
			want: "first",
		},
		{
			name: "object token with bearer prefix",
			raw:  `{"token":"Bearer abc.def.ghi"}`,
			want: "abc.def.ghi",
		},
		{
			name:    "nil payload",
			raw:     "",
			wantErr: ErrTokenMissing,
		},
		{
			name:    "empty string",
			raw:     `""`,
			wantErr: ErrTokenMissing,
		},
		{
			name:    "empty object",
			raw:     `{}`,
			wantErr: ErrTokenMissing,
		},
		{
			name:    "array payload",
			raw:     `[1,2]`,
			wantErr: ErrTokenMissing,
		},
		{
			name:    "bearer prefix only",
			raw:     `"Bearer "`,
			wantErr: ErrTokenMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ExtractToken(json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestExtractBearer(t *testing.T) {
	token, err := ExtractBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = ExtractBearer("abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ExtractBearer("")
	assert.ErrorIs(t, err, ErrTokenMissing)
}
