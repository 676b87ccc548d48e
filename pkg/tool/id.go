package tool

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratePaymentReference returns a merchant transaction id accepted by the
// payment gateway: alphanumeric, under 38 characters. The time-ordered UUID
// keeps references sortable in provider dashboards.
func GeneratePaymentReference() string {
	return "MT" + strings.ReplaceAll(GenerateUUIDV7(), "-", "")
}
