package engine

import (
	"math/rand"
	"testing"

	"chessalive/internal/engine/uci"
)

func TestGetPresetAliases(t *testing.T) {
	cases := map[string]string{
		"beginner":     "level1",
		"intermediate": "level5",
		"advanced":     "level7",
		"master":       "level8",
		"level3":       "level3",
	}
	for alias, want := range cases {
		p, err := GetPreset(alias)
		if err != nil {
			t.Fatalf("GetPreset(%s): %v", alias, err)
		}
		if p.Name != want {
			t.Fatalf("GetPreset(%s) = %s, want %s", alias, p.Name, want)
		}
	}
	if _, err := GetPreset("grandmaster"); err == nil {
		t.Fatalf("unknown preset accepted")
	}
}

func TestAllPresetsValidate(t *testing.T) {
	for name, p := range DefaultPresets {
		if err := ValidatePreset(p); err != nil {
			t.Fatalf("preset %s invalid: %v", name, err)
		}
		opt := OptionsFromPreset(p)
		if opt.MultiPV != p.MultiPV || opt.SkillLevel != p.SkillLevel {
			t.Fatalf("preset %s options mismatch: %+v", name, opt)
		}
		limits := LimitsFromPreset(p)
		if limits.Depth == 0 && limits.MoveTimeMillis == 0 {
			t.Fatalf("preset %s has no search limits", name)
		}
	}
}

func TestSelectCandidateMasterAlwaysBest(t *testing.T) {
	p, err := GetPreset("master")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	candidates := []uci.Candidate{
		{Move: "e2e4", EvalCP: 40},
		{Move: "d2d4", EvalCP: 35},
	}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		got, err := SelectCandidate(p, candidates, r)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got.Move != "e2e4" {
			t.Fatalf("master preset picked %s, want best line", got.Move)
		}
		if got.EvalCP != 40 {
			t.Fatalf("master preset noised eval: %d", got.EvalCP)
		}
	}
}

func TestSelectCandidateSpreadsAtLowLevels(t *testing.T) {
	p, err := GetPreset("level1")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	candidates := []uci.Candidate{
		{Move: "a", EvalCP: 100},
		{Move: "b", EvalCP: 50},
		{Move: "c", EvalCP: 0},
	}
	r := rand.New(rand.NewSource(7))
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		got, err := SelectCandidate(p, candidates, r)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		seen[got.Move]++
	}
	if len(seen) < 2 {
		t.Fatalf("level1 never deviated from the top line: %+v", seen)
	}
}

func TestSelectCandidateKeepsMateScore(t *testing.T) {
	p, err := GetPreset("level1")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	candidates := []uci.Candidate{{Move: "h5f7", EvalCP: 30000, Mate: 1}}
	r := rand.New(rand.NewSource(3))
	got, err := SelectCandidate(p, candidates, r)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.EvalCP != 30000 || got.Mate != 1 {
		t.Fatalf("noise applied to mate score: %+v", got)
	}
}

func TestSelectCandidateEmpty(t *testing.T) {
	p, _ := GetPreset("level5")
	if _, err := SelectCandidate(p, nil, rand.New(rand.NewSource(1))); err == nil {
		t.Fatalf("empty candidate list accepted")
	}
}
