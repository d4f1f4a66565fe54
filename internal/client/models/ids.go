package models

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers minted locally that the server has not
// acknowledged yet. Server ids are bare UUIDs and never carry it.
const TempIDPrefix = "tmp_"

// NewTempID returns a fresh temporary identifier.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was minted by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
