package utils

import (
	"strings"

	"github.com/google/uuid"
)

const TokenIDPrefix = "MHG-"

// GenerateTokenID returns a citizen-facing grievance reference such as
// MHG-3FA85F64.
func GenerateTokenID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return TokenIDPrefix + strings.ToUpper(hex[:8])
}
