package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

func NewRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignState appends an HMAC-SHA256 tag to payload: "<payload>.<tag>".
func SignState(payload, secret string) string {
	return payload + "." + stateTag(payload, secret)
}

// VerifySignedState returns the payload when the tag matches.
func VerifySignedState(signed, secret string) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx <= 0 || idx == len(signed)-1 {
		return "", false
	}
	payload, tag := signed[:idx], signed[idx+1:]
	if !hmac.Equal([]byte(tag), []byte(stateTag(payload, secret))) {
		return "", false
	}
	return payload, true
}

func stateTag(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
