package stats

import (
	"emberhollow/client/internal/session"
)

// InventoryAdapter maps item quantities onto stats.inventory[<entity>]. The
// logical patch carries deltas and the built ops use add-mode, so concurrent
// pickups merge additively instead of clobbering each other on rebase.
func InventoryAdapter() *Adapter {
	return &Adapter{
		Source: "inventory",
		Get: func(s *session.Session, entityID string) (session.Value, bool) {
			if s == nil || s.Stats == nil {
				return nil, false
			}
			entities, ok := s.Stats["inventory"]
			if !ok {
				return nil, false
			}
			value, ok := entities[entityID]
			if !ok {
				return nil, false
			}
			return value.Clone(), true
		},
		Set: func(s *session.Session, entityID string, patch Patch) *session.Session {
			next := s.Clone()
			if next.Stats == nil {
				next.Stats = make(map[string]map[string]session.Value)
			}
			if next.Stats["inventory"] == nil {
				next.Stats["inventory"] = make(map[string]session.Value)
			}
			if next.Stats["inventory"][entityID] == nil {
				next.Stats["inventory"][entityID] = make(session.Value)
			}
			slot := next.Stats["inventory"][entityID]
			for _, item := range patch.sortedFields() {
				slot[item] += patch[item]
				if slot[item] == 0 {
					delete(slot, item)
				}
			}
			return next
		},
		SessionPath: func(entityID string) []string {
			return []string{"stats", "inventory", entityID}
		},
		BuildSessionPatch: func(patch Patch, entityID string) session.Patch {
			ops := make(session.Patch, 0, len(patch))
			for _, item := range patch.sortedFields() {
				ops = append(ops, session.Op{
					Path:  []string{"stats", "inventory", entityID, item},
					Value: patch[item],
					Mode:  session.OpAdd,
				})
			}
			return ops
		},
	}
}
