// Package session signs and verifies the stateless session credential carried
// in the auth_session cookie. The same Verify is used by the API server and
// by the edge gate, so both always agree on what a valid credential is.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

const (
	// TTL is how long a signed credential stays valid.
	TTL = 30 * 24 * time.Hour

	separator = "."
)

// Payload uses the field names and millisecond expiry of the cookies
// already issued in production.
type Payload struct {
	UserID string `json:"userId"`
	Exp    int64  `json:"exp"`
}

// payloadEncoding rejects non-canonical padding bits so two different
// segments can never decode to the same payload.
var payloadEncoding = base64.StdEncoding.Strict()

// Sign returns base64(payload) + "." + hex(HMAC-SHA256(secret, payload)).
func Sign(secret []byte, userID string, now time.Time) string {
	// Marshalling a struct of a string and an int64 cannot fail.
	payload, _ := json.Marshal(Payload{
		UserID: userID,
		Exp:    now.Add(TTL).UnixMilli(),
	})
	return payloadEncoding.EncodeToString(payload) + separator + tag(secret, payload)
}

// Verify returns the user ID carried by credential when its tag matches
// secret and its expiry is after now.
func Verify(secret []byte, credential string, now time.Time) (string, bool) {
	encoded, sig, found := strings.Cut(credential, separator)
	if !found || encoded == "" || sig == "" || strings.Contains(sig, separator) {
		return "", false
	}

	payload, err := payloadEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}

	// hmac.Equal is constant time and fails on length mismatch.
	if !hmac.Equal([]byte(sig), []byte(tag(secret, payload))) {
		return "", false
	}

	var raw struct {
		UserID string          `json:"userId"`
		Exp    json.RawMessage `json:"exp"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", false
	}
	if raw.UserID == "" || len(raw.Exp) == 0 {
		return "", false
	}

	var exp int64
	if err := json.Unmarshal(raw.Exp, &exp); err != nil {
		return "", false
	}
	if exp <= now.UnixMilli() {
		return "", false
	}
	return raw.UserID, true
}

func tag(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Codec binds a secret and a clock to Sign and Verify.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	return &Codec{secret: c.secret, now: now}
}

func (c *Codec) Sign(userID string) string {
	return Sign(c.secret, userID, c.now())
}

func (c *Codec) Verify(credential string) (string, bool) {
	return Verify(c.secret, credential, c.now())
}
