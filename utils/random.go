package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of n random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewReference builds a prefixed unique external reference, e.g.
// "TK-8f14e45f" for ticket purchases or "WD-..." for withdrawals.
func NewReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}
