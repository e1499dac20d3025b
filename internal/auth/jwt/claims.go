package jwt

import (
	"encoding/json"
	"time"
)

// Claims represents the token claims the gateway cares about. Supabase
// access tokens carry the user id in sub and the project reference in iss.
type Claims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub,omitempty"`
	ExpiresAt *Time  `json:"exp,omitempty"`
	IssuedAt  *Time  `json:"iat,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Time is a wrapper around time.Time for the numeric-date JSON encoding
// used by registered JWT claims.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	var timestamp float64
	if err := json.Unmarshal(data, &timestamp); err != nil {
		return err
	}
	t.Time = time.Unix(int64(timestamp), 0)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Unix())
}

// NumericDate wraps a time.Time as a claim timestamp.
func NumericDate(t time.Time) *Time {
	return &Time{Time: t}
}
