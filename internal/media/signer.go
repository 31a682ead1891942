package media

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Actions a signature is bound to. An upload signature never verifies as a
// destroy signature.
const (
	ActionUpload  = "upload"
	ActionDestroy = "destroy"
)

var (
	ErrBadSignature     = errors.New("media: signature mismatch")
	ErrExpiredSignature = errors.New("media: signature expired")
)

// Signer issues the signatures the browser attaches to direct uploads and
// destroys against the image host, so the API secret never leaves the server.
type Signer struct {
	apiKey string
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

type Signed struct {
	APIKey    string            `json:"api_key"`
	Timestamp int64             `json:"timestamp"`
	Signature string            `json:"signature"`
	Params    map[string]string `json:"params"`
}

func NewSigner(apiKey, secret string) *Signer {
	return &Signer{apiKey: apiKey, secret: []byte(secret), maxAge: time.Hour, now: time.Now}
}

func (s *Signer) Sign(action string, params map[string]string) Signed {
	ts := s.now().Unix()
	return Signed{
		APIKey:    s.apiKey,
		Timestamp: ts,
		Signature: s.digest(action, params, ts),
		Params:    params,
	}
}

// Verify checks a signature produced by Sign and rejects stale ones.
func (s *Signer) Verify(action string, params map[string]string, ts int64, signature string) error {
	want := s.digest(action, params, ts)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return ErrBadSignature
	}
	if s.now().Sub(time.Unix(ts, 0)) > s.maxAge {
		return ErrExpiredSignature
	}
	return nil
}

// digest is HMAC-SHA256 over "action=A&k=v&k=v&timestamp=N" with keys
// sorted. Empty values are skipped.
func (s *Signer) digest(action string, params map[string]string, ts int64) string {
	keys := make([]string, 0, len(params)+1)
	for k, v := range params {
		if v == "" || k == "action" || k == "timestamp" || k == "signature" || k == "api_key" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("action=")
	b.WriteString(action)
	b.WriteByte('&')
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	b.WriteString("timestamp=")
	b.WriteString(strconv.FormatInt(ts, 10))

	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}
