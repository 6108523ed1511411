package session

import "fmt"

// OpMode controls how an op merges into the session document.
type OpMode string

const (
	// OpSet replaces the addressed field (last-writer-wins).
	OpSet OpMode = "set"
	// OpAdd adds a numeric delta to the addressed field. Delta ops stay
	// valid across a rebase, which is what makes additive stats safe
	// under conflict retries.
	OpAdd OpMode = "add"
)

// Op is one diff entry addressed into the session document. Paths are rooted
// at "worldTime", "flags", or "stats"; e.g.
// {flags relationships npc:42 affinity} or {stats inventory player:1 gold}.
type Op struct {
	Path  []string `json:"path"`
	Value any      `json:"value"`
	Mode  OpMode   `json:"mode,omitempty"`
}

// Patch is the storage-shaped diff sent to the authority alongside the
// caller's expected version. Adapters build patches; the coordinator and the
// authority only ever replay them.
type Patch []Op

// Apply replays the patch onto a deep copy of the base session and returns
// the copy. The base is never mutated. Unknown roots and type mismatches are
// reported as errors so a malformed patch can never half-apply silently.
func Apply(base *Session, patch Patch) (*Session, error) {
	if base == nil {
		return nil, fmt.Errorf("apply patch: nil session")
	}
	next := base.Clone()
	for _, op := range patch {
		if err := applyOp(next, op); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func applyOp(s *Session, op Op) error {
	if len(op.Path) == 0 {
		return fmt.Errorf("apply patch: empty path")
	}
	mode := op.Mode
	if mode == "" {
		mode = OpSet
	}
	switch op.Path[0] {
	case "worldTime":
		if len(op.Path) != 1 {
			return fmt.Errorf("apply patch: worldTime takes no sub-path, got %v", op.Path)
		}
		delta, ok := asFloat(op.Value)
		if !ok {
			return fmt.Errorf("apply patch: non-numeric worldTime value %T", op.Value)
		}
		if mode == OpAdd {
			s.WorldTime += int64(delta)
		} else {
			s.WorldTime = int64(delta)
		}
		return nil
	case "flags":
		if len(op.Path) < 2 {
			return fmt.Errorf("apply patch: flags path too short: %v", op.Path)
		}
		if s.Flags == nil {
			s.Flags = make(map[string]any)
		}
		return applyFlagOp(s.Flags, op.Path[1:], op.Value, mode)
	case "stats":
		if len(op.Path) != 4 {
			return fmt.Errorf("apply patch: stats path must be [stats source entity field], got %v", op.Path)
		}
		delta, ok := asFloat(op.Value)
		if !ok {
			return fmt.Errorf("apply patch: non-numeric stat value %T for %v", op.Value, op.Path)
		}
		source, entity, field := op.Path[1], op.Path[2], op.Path[3]
		if s.Stats == nil {
			s.Stats = make(map[string]map[string]Value)
		}
		if s.Stats[source] == nil {
			s.Stats[source] = make(map[string]Value)
		}
		if s.Stats[source][entity] == nil {
			s.Stats[source][entity] = make(Value)
		}
		if mode == OpAdd {
			s.Stats[source][entity][field] += delta
		} else {
			s.Stats[source][entity][field] = delta
		}
		return nil
	default:
		return fmt.Errorf("apply patch: unsupported root %q", op.Path[0])
	}
}

func applyFlagOp(node map[string]any, path []string, value any, mode OpMode) error {
	key := path[0]
	if len(path) == 1 {
		if mode == OpAdd {
			current, _ := asFloat(node[key])
			delta, ok := asFloat(value)
			if !ok {
				return fmt.Errorf("apply patch: non-numeric add value %T for flag %q", value, key)
			}
			node[key] = current + delta
			return nil
		}
		node[key] = cloneFlagValue(value)
		return nil
	}
	child, ok := node[key].(map[string]any)
	if !ok {
		if node[key] != nil {
			return fmt.Errorf("apply patch: flag %q is not a map", key)
		}
		child = make(map[string]any)
		node[key] = child
	}
	return applyFlagOp(child, path[1:], value, mode)
}
