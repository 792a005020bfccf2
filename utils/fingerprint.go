package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fingerprint derives the duplicate-submission key of a respondent from the
// user agent, the client IP and the UTC calendar day. It only discourages
// casual resubmission; anyone can change these inputs.
func Fingerprint(userAgent, clientIP string, day time.Time) string {
	h := sha256.New()
	h.Write([]byte(userAgent))
	h.Write([]byte{0})
	h.Write([]byte(clientIP))
	h.Write([]byte{0})
	h.Write([]byte(day.UTC().Format("2006-01-02")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
