package session

// Value holds the per-entity fields tracked for one stat source, e.g.
// {"affinity": 35, "trust": 10} for a relationship entry.
type Value map[string]float64

// Session is the client-held view of the player's game state. The authority
// owns Version; it advances by exactly one on every accepted write, and the
// client never fabricates it.
type Session struct {
	ID        string                      `json:"id"`
	Version   int64                       `json:"version"`
	WorldTime int64                       `json:"worldTime"`
	Flags     map[string]any              `json:"flags,omitempty"`
	Stats     map[string]map[string]Value `json:"stats,omitempty"`
}

// Clone performs a deep copy so a derived session never shares nested maps
// with its base. All mutation helpers clone first and return the copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cloned := &Session{
		ID:        s.ID,
		Version:   s.Version,
		WorldTime: s.WorldTime,
	}
	if s.Flags != nil {
		cloned.Flags = cloneFlagMap(s.Flags)
	}
	if s.Stats != nil {
		cloned.Stats = make(map[string]map[string]Value, len(s.Stats))
		for source, entities := range s.Stats {
			copied := make(map[string]Value, len(entities))
			for entity, value := range entities {
				copied[entity] = value.Clone()
			}
			cloned.Stats[source] = copied
		}
	}
	return cloned
}

// Clone copies the stat value map.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	copied := make(Value, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return copied
}

func cloneFlagMap(flags map[string]any) map[string]any {
	copied := make(map[string]any, len(flags))
	for k, v := range flags {
		copied[k] = cloneFlagValue(v)
	}
	return copied
}

func cloneFlagValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneFlagMap(v)
	case []any:
		copied := make([]any, len(v))
		for i, item := range v {
			copied[i] = cloneFlagValue(item)
		}
		return copied
	default:
		return v
	}
}

// Equal reports whether two sessions carry the same state field-for-field.
// Used by rollback verification and tests; not on any hot path.
func Equal(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.Version != b.Version || a.WorldTime != b.WorldTime {
		return false
	}
	if !flagMapsEqual(a.Flags, b.Flags) {
		return false
	}
	if len(a.Stats) != len(b.Stats) {
		return false
	}
	for source, entities := range a.Stats {
		other, ok := b.Stats[source]
		if !ok || len(entities) != len(other) {
			return false
		}
		for entity, value := range entities {
			otherValue, ok := other[entity]
			if !ok || len(value) != len(otherValue) {
				return false
			}
			for field, num := range value {
				if otherValue[field] != num {
					return false
				}
			}
		}
	}
	return true
}

func flagMapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !flagValuesEqual(av, bv) {
			return false
		}
	}
	return true
}

func flagValuesEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		return ok && flagMapsEqual(av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !flagValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return numericEqual(a, b)
	}
}

// numericEqual tolerates int/float64 mismatches introduced by JSON decoding.
func numericEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
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
