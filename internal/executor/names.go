package executor

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const nameSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// MakeUniqueName generates a collision-resistant name for jobs: the base,
// the current unix timestamp, and a random 6-character suffix.
func MakeUniqueName(base string) string {
	return fmt.Sprintf("%s-%d-%s", base, time.Now().Unix(), randomSuffix(6))
}

func randomSuffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(nameSuffixAlphabet[rand.IntN(len(nameSuffixAlphabet))])
	}
	return b.String()
}
