// Package signature authenticates inbound ESP webhooks. A request is trusted
// only if HMAC-SHA256(key, timestamp || token) matches the supplied hex
// signature and the signed timestamp is within the freshness window.
package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultFreshnessWindow is the maximum allowed skew between the signed
// timestamp and the verifier's clock, in either direction.
const DefaultFreshnessWindow = 5 * time.Minute

// Result is the outcome of a verification.
type Result int

const (
	Valid Result = iota
	Invalid
	Stale
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Stale:
		return "stale"
	default:
		return "invalid"
	}
}

// KeySource resolves signing keys at verification time. The first key is
// the current one; any further keys are accepted during rotation.
type KeySource interface {
	SigningKeys(ctx context.Context) []string
}

// StaticKeys is a KeySource backed by fixed values.
type StaticKeys []string

func (k StaticKeys) SigningKeys(context.Context) []string {
	return k
}

// Verifier checks webhook signatures.
type Verifier struct {
	keys   KeySource
	window time.Duration
	now    func() time.Time
}

type Option func(*Verifier)

func WithWindow(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.window = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(keys KeySource, opts ...Option) *Verifier {
	v := &Verifier{
		keys:   keys,
		window: DefaultFreshnessWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether the signature is authentic. Missing fields or a
// missing key are simply "not verified".
func (v *Verifier) Verify(ctx context.Context, timestamp, token, signature string) bool {
	if v == nil || v.keys == nil {
		return false
	}
	if timestamp == "" || token == "" || signature == "" {
		return false
	}

	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(given) != sha256.Size {
		return false
	}

	for _, key := range v.keys.SigningKeys(ctx) {
		if key == "" {
			continue
		}
		if hmac.Equal(given, sign(key, timestamp, token)) {
			return true
		}
	}
	return false
}

// Fresh reports whether the signed timestamp lies within the window around now.
func (v *Verifier) Fresh(timestamp string) bool {
	sec, err := parseUnix(timestamp)
	if err != nil {
		return false
	}
	now := v.now()

	// Whole-second bounds first, so extreme values never reach Duration
	// arithmetic, which saturates.
	slack := int64(v.window/time.Second) + 1
	if sec < now.Unix()-slack || sec > now.Unix()+slack {
		return false
	}
	t := time.Unix(sec, 0)
	return !t.Before(now.Add(-v.window)) && !t.After(now.Add(v.window))
}

// Check runs the signature and freshness gates in order.
func (v *Verifier) Check(ctx context.Context, timestamp, token, signature string) Result {
	if !v.Verify(ctx, timestamp, token, signature) {
		return Invalid
	}
	if !v.Fresh(timestamp) {
		return Stale
	}
	return Valid
}

// Sign computes the hex signature an ESP would send for timestamp and token.
func Sign(key, timestamp, token string) string {
	return hex.EncodeToString(sign(key, timestamp, token))
}

func sign(key, timestamp, token string) []byte {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(token))
	return mac.Sum(nil)
}

func parseUnix(timestamp string) (int64, error) {
	if sec, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		return sec, nil
	}
	f, err := strconv.ParseFloat(timestamp, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, fmt.Errorf("timestamp %q out of range", timestamp)
	}
	return int64(f), nil
}
