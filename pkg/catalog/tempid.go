package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks locally generated ids assigned to entities whose create
// has been applied optimistically but not yet confirmed by the server.
const TempIDPrefix = "temp-"

// NewTempID returns a collision-resistant temporary entity id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was generated by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
