package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewAdmissionToken returns the opaque capability presented at check-in.
// Unique within the active system; carries no signature on purpose.
func NewAdmissionToken() (string, error) {
	code, err := GenerateCode(12)
	if err != nil {
		return "", err
	}
	return "WL-" + code, nil
}
