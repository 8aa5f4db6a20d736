package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"time"
)

// TokenEntropyBytes is the number of random bytes behind every token.
const TokenEntropyBytes = 24

// NewToken returns an opaque printable token: the hex encoded random bytes
// followed by the unix time of issue, base64 encoded as a whole.
func NewToken(now time.Time) (string, error) {
	buf := make([]byte, TokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(buf) + strconv.FormatInt(now.Unix(), 10)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// Digest is what gets persisted in place of a token.
func Digest(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

