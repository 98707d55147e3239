package messenger

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	QueryMode        = "hub.mode"
	QueryVerifyToken = "hub.verify_token"
	QueryChallenge   = "hub.challenge"

	ModeSubscribe = "subscribe"

	// SignatureHeader carries the HMAC-SHA256 of the raw request body.
	SignatureHeader = "X-Hub-Signature-256"
)

var ErrInvalidSignature = errors.New("invalid request signature")

// Verify answers the subscription handshake. It returns the challenge and true
// only when mode is subscribe, a challenge is present and token equals secret.
// Callers must not reveal which check failed.
func Verify(mode string, token string, challenge string, secret string) (string, bool) {
	if mode != ModeSubscribe || token == "" || challenge == "" || secret == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return "", false
	}

	return challenge, true
}

// VerifySignature checks the X-Hub-Signature-256 header against body.
func VerifySignature(body []byte, signature string, appSecret string) error {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return ErrInvalidSignature
	}

	expected, err := hex.DecodeString(signature[len(prefix):])
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(expected, mac.Sum(nil)) {
		return ErrInvalidSignature
	}

	return nil
}

// Sign computes the signature header value for body.
func Sign(body []byte, appSecret string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
