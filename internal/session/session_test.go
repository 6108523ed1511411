package session

import "testing"

func sample() *Session {
	return &Session{
		ID:        "sess-1",
		Version:   3,
		WorldTime: 615,
		Flags: map[string]any{
			"weather": "rain",
			"quests": map[string]any{
				"herbalist": map[string]any{"progress": float64(40)},
			},
		},
		Stats: map[string]map[string]Value{
			"relationship": {
				"npc:ada": {"affinity": 35, "trust": 10},
			},
		},
	}
}

func TestCloneIsDeep(t *testing.T) {
	base := sample()
	cloned := base.Clone()

	cloned.Flags["weather"] = "sun"
	cloned.Flags["quests"].(map[string]any)["herbalist"].(map[string]any)["progress"] = float64(90)
	cloned.Stats["relationship"]["npc:ada"]["affinity"] = 99

	if base.Flags["weather"] != "rain" {
		t.Fatalf("clone shared the flags map")
	}
	if got := base.Flags["quests"].(map[string]any)["herbalist"].(map[string]any)["progress"]; got != float64(40) {
		t.Fatalf("clone shared a nested flag map: progress = %v", got)
	}
	if base.Stats["relationship"]["npc:ada"]["affinity"] != 35 {
		t.Fatalf("clone shared the stats map")
	}
}

func TestCloneNil(t *testing.T) {
	var s *Session
	if s.Clone() != nil {
		t.Fatalf("nil session must clone to nil")
	}
}

func TestEqual(t *testing.T) {
	a := sample()
	b := sample()
	if !Equal(a, b) {
		t.Fatalf("identical sessions reported unequal")
	}

	b.Stats["relationship"]["npc:ada"]["affinity"] = 36
	if Equal(a, b) {
		t.Fatalf("differing stat reported equal")
	}

	b = sample()
	b.Flags["quests"].(map[string]any)["herbalist"].(map[string]any)["progress"] = float64(41)
	if Equal(a, b) {
		t.Fatalf("differing nested flag reported equal")
	}
}

func TestEqualToleratesJSONNumericTypes(t *testing.T) {
	a := sample()
	b := sample()
	// A decode round-trip turns ints into float64s; Equal must not care.
	b.Flags["limit"] = float64(5)
	a.Flags["limit"] = int(5)
	if !Equal(a, b) {
		t.Fatalf("int/float64 flag mismatch reported unequal")
	}
}
