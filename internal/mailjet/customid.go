package mailjet

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the deterministic fingerprint of a recipient address
// used in correlation identifiers: the hex md5 of the address as received.
func Fingerprint(address string) string {
	sum := md5.Sum([]byte(address))
	return hex.EncodeToString(sum[:])
}

// CustomID builds the correlation identifier embedded in outbound messages:
// the send-record hash joined to the recipient address fingerprint. The
// provider echoes it back verbatim in webhook events.
func CustomID(hashID, address string) string {
	return hashID + "-" + Fingerprint(address)
}

// SplitCustomID splits a correlation identifier at the first '-' into the
// send-record hash and the address fingerprint. ok is false when the value
// carries no separator.
func SplitCustomID(customID string) (hashID, fingerprint string, ok bool) {
	i := strings.Index(customID, "-")
	if i < 0 {
		return "", "", false
	}
	return customID[:i], customID[i+1:], true
}
