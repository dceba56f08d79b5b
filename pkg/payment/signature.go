package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrSignature = errors.New("signature verification failed")

// Verifier checks HMAC-SHA256 webhook signatures. The header is either a bare
// hex digest of the body or "t=<unix>,v1=<hex>" where the digest covers
// "<t>.<body>" and t must fall inside the tolerance window.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

// Verify fails closed: an empty secret rejects everything.
func (v *Verifier) Verify(body []byte, header string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", ErrSignature)
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return fmt.Errorf("%w: missing signature", ErrSignature)
	}
	if !strings.Contains(header, "=") {
		if !v.matches(body, header) {
			return ErrSignature
		}
		return nil
	}

	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = val
		case "v1":
			sigs = append(sigs, val)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return fmt.Errorf("%w: malformed signature header", ErrSignature)
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrSignature)
	}
	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(unix, 0))
		if age > v.tolerance || age < -v.tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrSignature)
		}
	}
	signed := append([]byte(ts+"."), body...)
	for _, s := range sigs {
		if v.matches(signed, s) {
			return nil
		}
	}
	return ErrSignature
}

func (v *Verifier) matches(msg []byte, sigHex string) bool {
	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(msg)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the bare hex signature for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWithTimestamp returns a "t=...,v1=..." header value for body signed at ts.
func SignWithTimestamp(secret string, body []byte, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", t, Sign(secret, append([]byte(t+"."), body...)))
}
