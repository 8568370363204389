package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new document identifier.
func GenerateID() string {
	return "doc_" + uuid.NewString()
}
