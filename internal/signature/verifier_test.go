package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestVerifier(keys ...string) *Verifier {
	return NewVerifier(StaticKeys(keys), WithClock(func() time.Time { return fixedNow }))
}

func ts(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func TestSign_MatchesStandardLibrary(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("key-1"))
	mac.Write([]byte("1700000000" + "tok"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := Sign("key-1", "1700000000", "tok"); got != want {
		t.Errorf("signature mismatch:\n  got:  %s\n  want: %s", got, want)
	}
}

func TestVerify(t *testing.T) {
	stamp := ts(fixedNow)
	good := Sign("secret", stamp, "token-abc")

	tests := []struct {
		name      string
		keys      []string
		timestamp string
		token     string
		signature string
		want      bool
	}{
		{name: "valid", keys: []string{"secret"}, timestamp: stamp, token: "token-abc", signature: good, want: true},
		{name: "uppercase hex", keys: []string{"secret"}, timestamp: stamp, token: "token-abc", signature: upper(good), want: true},
		{name: "tampered signature", keys: []string{"secret"}, timestamp: stamp, token: "token-abc", signature: flipLast(good), want: false},
		{name: "tampered token", keys: []string{"secret"}, timestamp: stamp, token: "token-abd", signature: good, want: false},
		{name: "tampered timestamp", keys: []string{"secret"}, timestamp: ts(fixedNow.Add(time.Second)), token: "token-abc", signature: good, want: false},
		{name: "wrong key", keys: []string{"other"}, timestamp: stamp, token: "token-abc", signature: good, want: false},
		{name: "missing timestamp", keys: []string{"secret"}, timestamp: "", token: "token-abc", signature: good, want: false},
		{name: "missing token", keys: []string{"secret"}, timestamp: stamp, token: "", signature: good, want: false},
		{name: "missing signature", keys: []string{"secret"}, timestamp: stamp, token: "token-abc", signature: "", want: false},
		{name: "missing key", keys: nil, timestamp: stamp, token: "token-abc", signature: good, want: false},
		{name: "empty key", keys: []string{""}, timestamp: stamp, token: "token-abc", signature: good, want: false},
		{name: "not hex", keys: []string{"secret"}, timestamp: stamp, token: "token-abc", signature: "zz-not-hex", want: false},
		{name: "short signature", keys: []string{"secret"}, timestamp: stamp, token: "token-abc", signature: good[:10], want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVerifier(tt.keys...)
			if got := v.Verify(context.Background(), tt.timestamp, tt.token, tt.signature); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerify_KeyRotation(t *testing.T) {
	stamp := ts(fixedNow)
	oldSig := Sign("old-key", stamp, "tok")
	newSig := Sign("new-key", stamp, "tok")

	v := newTestVerifier("new-key", "old-key")
	if !v.Verify(context.Background(), stamp, "tok", oldSig) {
		t.Error("signature made with previous key should verify during rotation")
	}
	if !v.Verify(context.Background(), stamp, "tok", newSig) {
		t.Error("signature made with current key should verify")
	}

	retired := newTestVerifier("new-key")
	if retired.Verify(context.Background(), stamp, "tok", oldSig) {
		t.Error("signature made with retired key should not verify")
	}
}

func TestVerify_NilVerifier(t *testing.T) {
	var v *Verifier
	if v.Verify(context.Background(), "1", "t", "s") {
		t.Error("nil verifier must fail closed")
	}
}

func TestFresh(t *testing.T) {
	v := newTestVerifier("secret")

	tests := []struct {
		name      string
		timestamp string
		want      bool
	}{
		{name: "now", timestamp: ts(fixedNow), want: true},
		{name: "4m59s old", timestamp: ts(fixedNow.Add(-4*time.Minute - 59*time.Second)), want: true},
		{name: "exactly 5m old", timestamp: ts(fixedNow.Add(-5 * time.Minute)), want: true},
		{name: "5m01s old", timestamp: ts(fixedNow.Add(-5*time.Minute - time.Second)), want: false},
		{name: "4m59s in future", timestamp: ts(fixedNow.Add(4*time.Minute + 59*time.Second)), want: true},
		{name: "5m01s in future", timestamp: ts(fixedNow.Add(5*time.Minute + time.Second)), want: false},
		{name: "fractional", timestamp: ts(fixedNow) + ".25", want: true},
		{name: "year 2100", timestamp: "4102444800", want: false},
		{name: "far future integer", timestamp: "9000000000000000000", want: false},
		{name: "max int64", timestamp: "9223372036854775807", want: false},
		{name: "far future float", timestamp: "9e18", want: false},
		{name: "far past float", timestamp: "-9e18", want: false},
		{name: "huge float", timestamp: "1e300", want: false},
		{name: "NaN", timestamp: "NaN", want: false},
		{name: "infinity", timestamp: "+Inf", want: false},
		{name: "garbage", timestamp: "yesterday", want: false},
		{name: "empty", timestamp: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Fresh(tt.timestamp); got != tt.want {
				t.Errorf("Fresh(%q) = %v, want %v", tt.timestamp, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	v := newTestVerifier("secret")
	ctx := context.Background()

	fresh := ts(fixedNow)
	if got := v.Check(ctx, fresh, "tok", Sign("secret", fresh, "tok")); got != Valid {
		t.Errorf("fresh signed request: got %s, want valid", got)
	}

	old := ts(fixedNow.Add(-10 * time.Minute))
	if got := v.Check(ctx, old, "tok", Sign("secret", old, "tok")); got != Stale {
		t.Errorf("old signed request: got %s, want stale", got)
	}

	for _, future := range []string{"9000000000000000000", "9e18"} {
		if got := v.Check(ctx, future, "tok", Sign("secret", future, "tok")); got != Stale {
			t.Errorf("signed far-future timestamp %s: got %s, want stale", future, got)
		}
	}

	if got := v.Check(ctx, fresh, "tok", Sign("wrong", fresh, "tok")); got != Invalid {
		t.Errorf("bad signature: got %s, want invalid", got)
	}
}

func TestWithWindow(t *testing.T) {
	v := NewVerifier(StaticKeys{"k"}, WithWindow(time.Minute), WithClock(func() time.Time { return fixedNow }))
	if v.Fresh(ts(fixedNow.Add(-2 * time.Minute))) {
		t.Error("2m old timestamp should be stale with a 1m window")
	}

	v = NewVerifier(StaticKeys{"k"}, WithWindow(0))
	if v.window != DefaultFreshnessWindow {
		t.Errorf("zero window should keep default, got %v", v.window)
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func flipLast(s string) string {
	b := []byte(s)
	if b[len(b)-1] == '0' {
		b[len(b)-1] = '1'
	} else {
		b[len(b)-1] = '0'
	}
	return string(b)
}
