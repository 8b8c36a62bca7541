package tool

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// shareCodeAlphabet leaves out characters that are easy to misread (0/O, 1/I/L).
const shareCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const ShareCodeLength = 8

// GenerateShareCode returns a random guest-facing event code.
func GenerateShareCode() (string, error) {
	out := make([]byte, ShareCodeLength)
	max := big.NewInt(int64(len(shareCodeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate share code: %w", err)
		}
		out[i] = shareCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}

// GenerateFreeRef synthesizes a local transaction id for zero-cost orders,
// e.g. "free_paypal_1717171717000_9f2c4e1a".
func GenerateFreeRef(prefix string, now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), uuid.NewString()[:8])
	}
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), hex.EncodeToString(buf))
}
