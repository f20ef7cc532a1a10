package uci

import (
	"strings"
	"testing"
)

func TestParseInfoCentipawns(t *testing.T) {
	line := "info depth 15 seldepth 21 multipv 2 score cp -34 nodes 123456 pv e7e5 g1f3 b8c6"
	mv, cand, ok := parseInfo(line)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if mv != 2 {
		t.Fatalf("multipv = %d, want 2", mv)
	}
	if cand.Move != "e7e5" || cand.EvalCP != -34 || cand.Mate != 0 {
		t.Fatalf("unexpected candidate: %+v", cand)
	}
	if len(cand.Principal) != 3 {
		t.Fatalf("principal length = %d, want 3", len(cand.Principal))
	}
}

func TestParseInfoMate(t *testing.T) {
	line := "info depth 10 multipv 1 score mate 3 pv d8h4 g2g3 h4g3"
	_, cand, ok := parseInfo(line)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if cand.Mate != 3 {
		t.Fatalf("mate = %d, want 3", cand.Mate)
	}
	if cand.EvalCP != 30000 {
		t.Fatalf("eval = %d, want saturated 30000", cand.EvalCP)
	}

	line = "info depth 10 score mate -2 pv e8f7"
	_, cand, ok = parseInfo(line)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if cand.Mate != -2 || cand.EvalCP != -30000 {
		t.Fatalf("unexpected losing mate candidate: %+v", cand)
	}
}

func TestParseInfoWithoutPV(t *testing.T) {
	if _, _, ok := parseInfo("info depth 5 currmove e2e4 currmovenumber 1"); ok {
		t.Fatalf("lines without pv should be ignored")
	}
}

func TestBuildPositionCommand(t *testing.T) {
	if got := buildPositionCommand("", nil); got != "position startpos\n" {
		t.Fatalf("got %q", got)
	}
	if got := buildPositionCommand("startpos", []string{"e2e4", "e7e5"}); got != "position startpos moves e2e4 e7e5\n" {
		t.Fatalf("got %q", got)
	}
	fen := "8/P7/8/8/8/8/8/k6K w - - 0 1"
	if got := buildPositionCommand(fen, nil); got != "position fen "+fen+"\n" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildGoTokens(t *testing.T) {
	tokens, err := buildGoTokens(Limits{Depth: 15, MoveTimeMillis: 200})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if strings.Join(tokens, " ") != "go depth 15 movetime 200" {
		t.Fatalf("got %v", tokens)
	}
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error for empty limits")
	}
}

func TestCollapseCandidatesOrders(t *testing.T) {
	m := map[int]Candidate{
		3: {Move: "c"},
		1: {Move: "a"},
		2: {Move: "b"},
	}
	out := collapseCandidates(m)
	if len(out) != 3 || out[0].Move != "a" || out[1].Move != "b" || out[2].Move != "c" {
		t.Fatalf("candidates not ordered by multipv: %+v", out)
	}
}

func TestValidateOptions(t *testing.T) {
	valid := Options{Threads: 1, SkillLevel: 20, HashMB: 16, MultiPV: 1}
	if err := validateOptions(valid); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	bad := valid
	bad.SkillLevel = 21
	if err := validateOptions(bad); err == nil {
		t.Fatalf("skill 21 accepted")
	}
	bad = valid
	bad.MultiPV = 0
	if err := validateOptions(bad); err == nil {
		t.Fatalf("multipv 0 accepted")
	}
}
