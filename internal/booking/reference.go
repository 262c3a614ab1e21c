package booking

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"time"
)

const (
	referencePrefix = "BK"
	// referenceAlphabet omits I, O, 0 and 1 so codes survive being read aloud.
	referenceAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceSuffixLen = 6
)

var referencePattern = regexp.MustCompile(`^BK[0-9]{8}[A-HJ-NP-Z2-9]{6}$`)

// ReferenceGenerator produces human-readable booking references of the form
// BK + YYYYMMDD + six random characters.
type ReferenceGenerator struct {
	rand io.Reader
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{rand: rand.Reader}
}

// NewReferenceGeneratorFrom draws randomness from r instead of crypto/rand.
func NewReferenceGeneratorFrom(r io.Reader) *ReferenceGenerator {
	return &ReferenceGenerator{rand: r}
}

// Next returns a fresh reference stamped with day's civil date.
func (g *ReferenceGenerator) Next(day time.Time) (string, error) {
	var buf [referenceSuffixLen]byte
	if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
		return "", fmt.Errorf("read reference randomness: %w", err)
	}
	suffix := make([]byte, referenceSuffixLen)
	for i, b := range buf {
		// len(referenceAlphabet) is 32, so masking keeps the draw uniform.
		suffix[i] = referenceAlphabet[b&31]
	}
	return referencePrefix + day.Format("20060102") + string(suffix), nil
}

// ValidReference reports whether code has the shape produced by Next.
func ValidReference(code string) bool {
	return referencePattern.MatchString(code)
}
