package stats

import (
	"emberhollow/client/internal/session"
)

// Patch is the logical shape callers work with, e.g. {"affinity": 5}.
// Adapters reshape it into the stored document layout; nothing outside an
// adapter knows where a stat actually lives.
type Patch map[string]float64

// Adapter maps one logical stat source onto session storage. Adapters are
// registered once at boot and treated as immutable afterwards.
type Adapter struct {
	// Source is the logical name the adapter is looked up by, e.g.
	// "relationship" or "inventory".
	Source string

	// Get reads the current value for an entity, reporting whether one
	// exists.
	Get func(s *session.Session, entityID string) (session.Value, bool)

	// Set applies a logical patch locally and returns the derived session.
	// The base session is never mutated.
	Set func(s *session.Session, entityID string, patch Patch) *session.Session

	// SessionPath names where the entity's slice of state lives in the
	// stored document.
	SessionPath func(entityID string) []string

	// BuildSessionPatch reshapes a logical patch into the storage-shaped
	// ops sent to the authority.
	BuildSessionPatch func(patch Patch, entityID string) session.Patch
}

// sortedFields returns the patch keys in a stable order so built patches are
// deterministic across runs.
func (p Patch) sortedFields() []string {
	fields := make([]string, 0, len(p))
	for k := range p {
		fields = append(fields, k)
	}
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j] < fields[j-1]; j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
	return fields
}
