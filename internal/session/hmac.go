package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// hmacHex computes HMAC-SHA256(key, message) and hex-encodes it, giving a
// deterministic, fixed-length lookup identifier for a logical session key
// - the fix for original_source ServiceSessionDB's non-deterministic
// encrypted lookup key (Decision D1, see DESIGN.md).
func hmacHex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
