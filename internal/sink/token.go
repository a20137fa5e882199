// Package sink provides persistence sinks for finalized wizard drafts.
package sink

import (
	"strings"

	"github.com/google/uuid"
)

var tokenPrefixes = map[string]string{
	"customer":           "CUS",
	"policy-application": "APP",
	"claim-intimation":   "CLM",
}

// newToken returns a confirmation token such as CLM-3F2A9C1B.
func newToken(recordType string) string {
	prefix, ok := tokenPrefixes[recordType]
	if !ok {
		prefix = "REC"
	}
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id[:12]
}
