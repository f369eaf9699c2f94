package types

import (
	"crypto/rand"
	"fmt"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewAuditID returns an audit entry id, formatted AUD-<epochMillis>-<7 base36>
func NewAuditID() string {
	return newID("AUD")
}

// NewApprovalID returns an approval request id, formatted APR-<epochMillis>-<7 base36>
func NewApprovalID() string {
	return newID("APR")
}

func newID(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), randBase36(7))
}

func randBase36(n int) string {
	buf := make([]byte, n)
	// rand.Read never fails on supported platforms
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(buf)
}
