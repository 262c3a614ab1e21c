package booking

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceGenerator_Next(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Format", func(t *testing.T) {
		g := NewReferenceGenerator()
		for i := 0; i < 200; i++ {
			code, err := g.Next(day)
			require.NoError(t, err)
			assert.Len(t, code, 16)
			assert.True(t, strings.HasPrefix(code, "BK20250310"), code)
			assert.True(t, ValidReference(code), code)
			assert.False(t, strings.ContainsAny(code[10:], "IO01"), "ambiguous character in %s", code)
		}
	})

	t.Run("Deterministic Source", func(t *testing.T) {
		g := NewReferenceGeneratorFrom(bytes.NewReader([]byte{0, 1, 7, 8, 30, 31}))
		code, err := g.Next(day)
		require.NoError(t, err)
		assert.Equal(t, "BK20250310ABHJ89", code)
	})

	t.Run("High Bits Are Ignored", func(t *testing.T) {
		g := NewReferenceGeneratorFrom(bytes.NewReader([]byte{32, 33, 64, 255, 224, 0}))
		code, err := g.Next(day)
		require.NoError(t, err)
		assert.Equal(t, "BK20250310ABA9AA", code)
	})

	t.Run("Randomness Failure", func(t *testing.T) {
		g := NewReferenceGeneratorFrom(iotest.ErrReader(errors.New("entropy exhausted")))
		_, err := g.Next(day)
		assert.ErrorContains(t, err, "entropy exhausted")
	})
}

func TestValidReference(t *testing.T) {
	valid := []string{"BK20250310ABCDEF", "BK19991231Z2Z3Z4"}
	invalid := []string{
		"",
		"BK20250310ABCDE",   // short
		"BK20250310ABCDEFG", // long
		"bk20250310ABCDEF",
		"XX20250310ABCDEF",
		"BK2025031OABCDEF",
		"BK20250310ABCDE0",
		"BK20250310ABCDEI",
		"BK20250310abcdef",
	}

	for _, code := range valid {
		assert.True(t, ValidReference(code), code)
	}
	for _, code := range invalid {
		assert.False(t, ValidReference(code), code)
	}
}
