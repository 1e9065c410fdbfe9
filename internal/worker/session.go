package worker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/famomatic/vot/internal/wire"
)

// ErrEmptySession indicates the worker returned an empty or non-OK response
// to a session-create request. The next request re-creates the session.
var ErrEmptySession = errors.New("empty session response")

// session is the time-limited signing credential shared by all requests.
type session struct {
	uuid      string
	secretKey string
	expiresAt int64 // epoch seconds, safety margin already applied
}

func (s session) valid(nowEpoch int64) bool {
	return s.secretKey != "" && nowEpoch < s.expiresAt
}

// ensureSession returns the current session, creating a new one when absent
// or expired. Concurrent refreshers block against each other; the stale
// session is never stored on failure.
func (c *Client) ensureSession(ctx context.Context) (session, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	nowEpoch := c.now().Unix()
	if c.session.valid(nowEpoch) {
		return c.session, nil
	}

	sessionUUID := c.newUUID()
	body := wire.EncodeSessionRequest(sessionUUID, sessionModule)

	respBytes, err := c.sendProto(ctx, "POST", sessionPath, body, protoAuth{
		signature: computeHMACHex(body),
	})
	if err != nil {
		return session{}, err
	}
	if len(respBytes) == 0 {
		return session{}, ErrEmptySession
	}

	decoded := wire.DecodeSessionResponse(respBytes)
	c.session = session{
		uuid:      sessionUUID,
		secretKey: decoded.SecretKey,
		expiresAt: nowEpoch + int64(decoded.Expires) - sessionExpiryMargin,
	}
	return c.session, nil
}

// computeHMACHex is the hex-encoded HMAC-SHA256 of data under the fixed
// shared key.
func computeHMACHex(data []byte) string {
	mac := hmac.New(sha256.New, []byte(hmacKey))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// signToken builds the Sec-Vtrans-Token header value for a request path:
// "hmac(uuid:path:version):uuid:path:version".
func signToken(sessionUUID, path string) string {
	token := sessionUUID + ":" + path + ":" + componentVersion
	return computeHMACHex([]byte(token)) + ":" + token
}
