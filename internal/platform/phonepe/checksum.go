package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Checksum computes the X-VERIFY header for a request: the hex SHA-256 of
// the base64 payload concatenated with the endpoint path and the salt key,
// suffixed with "###<saltIndex>" to identify the key version.
func Checksum(base64Payload, path, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(base64Payload + path + saltKey))
	return fmt.Sprintf("%s###%s", hex.EncodeToString(sum[:]), saltIndex)
}

// VerifyChecksum validates an X-VERIFY header against the expected payload
// and salt. Comparison is constant time.
func VerifyChecksum(header, base64Payload, path, saltKey string) bool {
	idx := strings.LastIndex(header, "###")
	if idx < 0 {
		return false
	}
	expected := Checksum(base64Payload, path, saltKey, header[idx+3:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(header)) == 1
}
