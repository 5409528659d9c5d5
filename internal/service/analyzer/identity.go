package analyzer

import (
	"path"
	"strings"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

// PlaceholderRegistration stands in for a registration id that cannot be read
// from the file name.
const PlaceholderRegistration = "N/A"

// ParseIdentity splits "<registrationId>_<partName>.<ext>" on the first
// underscore of the stem. Names without one keep the whole stem as part
// name; an empty registration part keeps what follows the underscore. Both
// fall back to the placeholder registration.
func ParseIdentity(fileName string) models.Identity {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))

	id := models.Identity{FileName: fileName}

	reg, part, found := strings.Cut(stem, "_")
	if !found {
		part = stem
	}
	if !found || reg == "" {
		id.RegistrationID = PlaceholderRegistration
		id.PartName = part
		id.Malformed = true
		return id
	}

	id.RegistrationID = reg
	id.PartName = part
	return id
}
