package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const signatureLength = 24

// CodeState is the slice of persisted user state a confirmation code is bound to.
// Changing any of it (for example stamping LastLogin) invalidates every code
// issued before the change.
type CodeState struct {
	UserID    uuid.UUID
	Email     string
	LastLogin *time.Time
}

// ConfirmationCodes issues stateless confirmation codes. Nothing is stored:
// a code is "<base36 unix seconds>-<hmac prefix>" and is re-derived on check.
type ConfirmationCodes struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewConfirmationCodes(key []byte, ttl time.Duration) *ConfirmationCodes {
	return &ConfirmationCodes{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

// WithClock returns a copy that reads the current time from now.
func (c *ConfirmationCodes) WithClock(now func() time.Time) *ConfirmationCodes {
	clone := *c
	clone.now = now
	return &clone
}

// Make returns a fresh code for state.
func (c *ConfirmationCodes) Make(state CodeState) string {
	return c.makeAt(state, c.now().Unix())
}

// Check reports whether code was issued for state and is still within its window.
func (c *ConfirmationCodes) Check(state CodeState, code string) bool {
	tsPart, _, ok := strings.Cut(code, "-")
	if !ok {
		return false
	}

	issued, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || issued < 0 {
		return false
	}

	expected := c.makeAt(state, issued)
	if !hmac.Equal([]byte(expected), []byte(code)) {
		return false
	}

	age := c.now().Sub(time.Unix(issued, 0))
	return age >= -time.Minute && age <= c.ttl
}

func (c *ConfirmationCodes) makeAt(state CodeState, issued int64) string {
	ts := strconv.FormatInt(issued, 36)

	lastLogin := ""
	if state.LastLogin != nil {
		lastLogin = strconv.FormatInt(state.LastLogin.UTC().UnixMicro(), 10)
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(state.UserID.String()))
	mac.Write([]byte{0})
	mac.Write([]byte(strings.ToLower(state.Email)))
	mac.Write([]byte{0})
	mac.Write([]byte(lastLogin))
	mac.Write([]byte{0})
	mac.Write([]byte(ts))

	return ts + "-" + hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}
