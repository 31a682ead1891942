package flra

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrSignatureRequired = errors.New("flra: signature required")

// CheckSignature gates preview and submission. A signature is either a
// base64 data URL from the signature pad or a typed name; empty values and
// data URLs without a payload are rejected.
func CheckSignature(sig string) error {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return ErrSignatureRequired
	}
	if !strings.HasPrefix(sig, "data:") {
		return nil
	}
	_, payload, ok := strings.Cut(sig, ",")
	if !ok || strings.TrimSpace(payload) == "" {
		return ErrSignatureRequired
	}
	if strings.Contains(sig[:strings.Index(sig, ",")], ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil || len(raw) == 0 {
			return ErrSignatureRequired
		}
	}
	return nil
}

// signatureImage returns the decoded image bytes of a data URL signature.
func signatureImage(sig string) ([]byte, bool) {
	meta, payload, ok := strings.Cut(strings.TrimSpace(sig), ",")
	if !ok || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}
