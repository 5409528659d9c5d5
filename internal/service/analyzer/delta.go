package analyzer

import (
	"github.com/RubachokBoss/cad-assessment/internal/models"
)

type DeltaResult struct {
	Delta              models.Signature
	BaseModified       bool
	SharedPrefixLength int
	// AmbiguousBase is set when the master signature is empty and the delta
	// degenerates to the whole student signature.
	AmbiguousBase bool
}

// ExtractDelta compares two signatures position by position. When the
// student keeps the whole master history as a prefix, the delta is whatever
// follows it; otherwise the base counts as modified and the full student
// signature becomes the delta.
func ExtractDelta(master, student models.Signature) DeltaResult {
	shared := SharedPrefixLength(master, student)

	if shared == len(master) {
		return DeltaResult{
			Delta:              cloneSignature(student[shared:]),
			SharedPrefixLength: shared,
			AmbiguousBase:      len(master) == 0,
		}
	}

	return DeltaResult{
		Delta:              cloneSignature(student),
		BaseModified:       true,
		SharedPrefixLength: shared,
	}
}

func SharedPrefixLength(master, student models.Signature) int {
	n := len(master)
	if len(student) < n {
		n = len(student)
	}

	for i := 0; i < n; i++ {
		if !master[i].Equal(student[i]) {
			return i
		}
	}
	return n
}

func cloneSignature(s models.Signature) models.Signature {
	out := make(models.Signature, len(s))
	copy(out, s)
	return out
}
