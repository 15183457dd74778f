// Package token signs and verifies the access token stored in the grq_access
// cookie.  Two encodings are understood:
//
//	pipe (current): role|sessionId|signature
//	legacy:         base64url(JSON{role,sessionId,exp}).signature
//
// Signatures are HMAC-SHA256 over the unsigned part, rendered as unpadded
// base64url.  The payload is not confidential, only integrity protected.
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

const (
	pipeSep   = "|"
	legacySep = "."
)

var (
	// ErrInvalidToken is returned for any token that must not be trusted:
	// malformed, wrong field count, bad signature, expired or unsigned.
	ErrInvalidToken = errors.New("token: invalid")
	// ErrSecretMissing is returned by the issue functions when no signing
	// secret is configured.
	ErrSecretMissing = errors.New("token: signing secret is not configured")
)

// sigEncoding rejects non-zero padding bits so every signature has exactly
// one accepted text form.
var sigEncoding = base64.RawURLEncoding.Strict()

// legacyPayload is the JSON body of the legacy format.
type legacyPayload struct {
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
	Exp       int64  `json:"exp"`
}

// Codec issues and verifies access tokens with one shared secret.  A Codec is
// safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// New returns a Codec for secret.  An empty secret yields a Codec that
// verifies nothing and refuses to issue.
func New(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// WithClock replaces the time source used for legacy expiry checks.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Configured reports whether a signing secret is present.
func (c *Codec) Configured() bool {
	return len(c.secret) > 0
}

// Issue returns a pipe-format token binding role (lowercased) to sessionID.
// The output is deterministic for a given role, sessionID and secret.
func (c *Codec) Issue(role, sessionID string) (string, error) {
	if !c.Configured() {
		return "", ErrSecretMissing
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" || sessionID == "" {
		return "", errors.New("token: role and session id are required")
	}
	if strings.Contains(role, pipeSep) || strings.Contains(sessionID, pipeSep) {
		return "", errors.New("token: role and session id must not contain '|'")
	}
	unsigned := role + pipeSep + sessionID
	sig, err := c.sign(unsigned)
	if err != nil {
		return "", err
	}
	return unsigned + pipeSep + sig, nil
}

// IssueLegacy returns a token in the legacy base64json.signature format.
// New cookies use Issue; this exists for tooling and for tokens minted by
// older deployments.
func (c *Codec) IssueLegacy(role, sessionID string, exp time.Time) (string, error) {
	if !c.Configured() {
		return "", ErrSecretMissing
	}
	body, err := json.Marshal(legacyPayload{
		Role:      strings.ToLower(strings.TrimSpace(role)),
		SessionID: sessionID,
		Exp:       exp.Unix(),
	})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(body)
	sig, err := c.sign(payload)
	if err != nil {
		return "", err
	}
	return payload + legacySep + sig, nil
}

// Verify decodes raw and checks its signature.  Every failure, including a
// missing secret, is reported as ErrInvalidToken; Verify never panics on
// caller input.
func (c *Codec) Verify(raw string) (model.Access, error) {
	if !c.Configured() || raw == "" {
		return model.Access{}, ErrInvalidToken
	}
	if strings.Contains(raw, pipeSep) {
		return c.verifyPipe(raw)
	}
	return c.verifyLegacy(raw)
}

func (c *Codec) verifyPipe(raw string) (model.Access, error) {
	parts := strings.Split(raw, pipeSep)
	if len(parts) != 3 {
		return model.Access{}, ErrInvalidToken
	}
	role, sessionID, sig := parts[0], parts[1], parts[2]
	if role == "" || sessionID == "" {
		return model.Access{}, ErrInvalidToken
	}
	if !c.valid(role+pipeSep+sessionID, sig) {
		return model.Access{}, ErrInvalidToken
	}
	return model.Access{Role: role, SessionID: sessionID}, nil
}

func (c *Codec) verifyLegacy(raw string) (model.Access, error) {
	parts := strings.Split(raw, legacySep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return model.Access{}, ErrInvalidToken
	}
	if !c.valid(parts[0], parts[1]) {
		return model.Access{}, ErrInvalidToken
	}
	body, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return model.Access{}, ErrInvalidToken
	}
	var p legacyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.Access{}, ErrInvalidToken
	}
	if p.Role == "" || p.SessionID == "" {
		return model.Access{}, ErrInvalidToken
	}
	// exp of zero means the token was minted without an expiry.
	if p.Exp != 0 && c.now().Unix() > p.Exp {
		return model.Access{}, ErrInvalidToken
	}
	return model.Access{Role: p.Role, SessionID: p.SessionID}, nil
}

func (c *Codec) sign(unsigned string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(unsigned, c.secret)
	if err != nil {
		return "", err
	}
	return sigEncoding.EncodeToString(sig), nil
}

// valid compares the signature in constant time (hmac.Equal inside the
// HS256 signing method).
func (c *Codec) valid(unsigned, sig string) bool {
	if len(sig) != sigEncoding.EncodedLen(sha256.Size) {
		return false
	}
	decoded, err := sigEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return jwt.SigningMethodHS256.Verify(unsigned, decoded, c.secret) == nil
}
