package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns prefix followed by 12 random hex characters, e.g. "txn_1f0c9a2b7d3e".
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
