package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewReferenceNumber returns a human-shareable unique reference for a
// purchase record, e.g. "SR-9F3A21C4". Members read it over the phone
// when confirming a bank transfer, so it stays short and uppercase.
func NewReferenceNumber() string {
	id := uuid.New().String()
	return "SR-" + strings.ToUpper(id[:8])
}
