package stats

import (
	"emberhollow/client/internal/session"
)

// RelationshipAdapter maps NPC relationship stats (affinity, trust, fear)
// onto flags.relationships["npc:<id>"]. Fields merge last-writer-wins.
func RelationshipAdapter() *Adapter {
	return &Adapter{
		Source: "relationship",
		Get: func(s *session.Session, entityID string) (session.Value, bool) {
			return flagValue(s, []string{"relationships", entityID})
		},
		Set: func(s *session.Session, entityID string, patch Patch) *session.Session {
			return setFlagFields(s, []string{"relationships", entityID}, patch)
		},
		SessionPath: func(entityID string) []string {
			return []string{"flags", "relationships", entityID}
		},
		BuildSessionPatch: func(patch Patch, entityID string) session.Patch {
			return buildFlagPatch([]string{"flags", "relationships", entityID}, patch, session.OpSet)
		},
	}
}

// QuestAdapter maps quest progress onto flags.quests["<quest id>"]. The
// entity id here is the quest id; fields like progress and stage merge
// last-writer-wins.
func QuestAdapter() *Adapter {
	return &Adapter{
		Source: "quest",
		Get: func(s *session.Session, entityID string) (session.Value, bool) {
			return flagValue(s, []string{"quests", entityID})
		},
		Set: func(s *session.Session, entityID string, patch Patch) *session.Session {
			return setFlagFields(s, []string{"quests", entityID}, patch)
		},
		SessionPath: func(entityID string) []string {
			return []string{"flags", "quests", entityID}
		},
		BuildSessionPatch: func(patch Patch, entityID string) session.Patch {
			return buildFlagPatch([]string{"flags", "quests", entityID}, patch, session.OpSet)
		},
	}
}

// flagValue reads a flag map under Flags and converts its numeric fields.
func flagValue(s *session.Session, path []string) (session.Value, bool) {
	raw, ok := session.Flag(s, path)
	if !ok {
		return nil, false
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	value := make(session.Value, len(fields))
	for k, v := range fields {
		if num, ok := numeric(v); ok {
			value[k] = num
		}
	}
	return value, true
}

func setFlagFields(s *session.Session, path []string, patch Patch) *session.Session {
	next := s
	for _, field := range patch.sortedFields() {
		next = session.SetFlag(next, append(append([]string{}, path...), field), patch[field])
	}
	return next
}

func buildFlagPatch(base []string, patch Patch, mode session.OpMode) session.Patch {
	ops := make(session.Patch, 0, len(patch))
	for _, field := range patch.sortedFields() {
		ops = append(ops, session.Op{
			Path:  append(append([]string{}, base...), field),
			Value: patch[field],
			Mode:  mode,
		})
	}
	return ops
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
