package session

// Pure derive functions. Each returns a fresh session; the base is untouched.

// AdvanceWorldTime returns a copy of the session with the world clock moved
// forward by the given number of minutes.
func AdvanceWorldTime(base *Session, minutes int64) *Session {
	next := base.Clone()
	next.WorldTime += minutes
	return next
}

// SetFlag returns a copy of the session with the flag at the given path
// replaced. Intermediate maps are created as needed.
func SetFlag(base *Session, path []string, value any) *Session {
	next := base.Clone()
	if len(path) == 0 {
		return next
	}
	if next.Flags == nil {
		next.Flags = make(map[string]any)
	}
	node := next.Flags
	for _, key := range path[:len(path)-1] {
		child, ok := node[key].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[key] = child
		}
		node = child
	}
	node[path[len(path)-1]] = cloneFlagValue(value)
	return next
}

// Flag reads the flag at the given path, reporting whether it exists.
func Flag(s *Session, path []string) (any, bool) {
	if s == nil || len(path) == 0 {
		return nil, false
	}
	var node any = s.Flags
	for _, key := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return node, true
}
