package referral

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	codeLength = 8
	// No 0/O, 1/I/L: codes get read aloud and typed from screenshots.
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// GenerateCode returns a random code from the unambiguous alphabet.
func GenerateCode() (string, error) {
	var b strings.Builder
	b.Grow(codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode uppercases and trims user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code could have been produced by GenerateCode.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
