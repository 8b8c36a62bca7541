package tool

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	id, err := uuid.Parse(GenerateUUIDV7())
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
}

func TestGenerateShareCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		code, err := GenerateShareCode()
		require.NoError(t, err)
		require.Len(t, code, ShareCodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(shareCodeAlphabet, r))
		}
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 190)
}

func TestGenerateFreeRef(t *testing.T) {
	now := time.UnixMilli(1717171717000)
	ref := GenerateFreeRef("free_paypal", now)
	require.True(t, strings.HasPrefix(ref, "free_paypal_1717171717000_"))
	require.Len(t, strings.TrimPrefix(ref, "free_paypal_1717171717000_"), 8)
}
