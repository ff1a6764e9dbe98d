package highlight

import (
	"reflect"
	"testing"
)

func detailFor(name string) TaskDetail {
	return TaskDetail{
		Name:            name,
		Definition:      "def: " + name,
		PageNumber:      "B-10",
		SourceReference: "FM 3-90",
	}
}

func checkInvariants(t *testing.T, content string, spans []TaskMatch) {
	t.Helper()
	for i, sp := range spans {
		if sp.Start < 0 || sp.End <= sp.Start || sp.End > len(content) {
			t.Fatalf("span %d [%d,%d) out of range", i, sp.Start, sp.End)
		}
		if content[sp.Start:sp.End] != sp.MatchedText {
			t.Errorf("span %d: slice %q != matched text %q", i, content[sp.Start:sp.End], sp.MatchedText)
		}
		if i > 0 && spans[i-1].End > sp.Start {
			t.Errorf("span %d overlaps previous: [%d,%d) after end %d", i, sp.Start, sp.End, spans[i-1].End)
		}
	}
}

func TestResolve_OccupyAndSecure(t *testing.T) {
	content := "Forces will occupy and secure the objective."
	details := map[string]TaskDetail{
		"Occupy": detailFor("Occupy"),
		"Secure": detailFor("Secure"),
	}

	spans := Resolve(content, details)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	checkInvariants(t, content, spans)

	if spans[0].Start != 12 || spans[0].End != 18 || spans[0].MatchedText != "occupy" {
		t.Errorf("first span: got [%d,%d) %q, want [12,18) occupy", spans[0].Start, spans[0].End, spans[0].MatchedText)
	}
	if spans[1].Start != 23 || spans[1].End != 29 || spans[1].MatchedText != "secure" {
		t.Errorf("second span: got [%d,%d) %q, want [23,29) secure", spans[1].Start, spans[1].End, spans[1].MatchedText)
	}
	if spans[0].Detail.Definition != "def: Occupy" {
		t.Errorf("first span detail not attached: %+v", spans[0].Detail)
	}
}

func TestResolve_OverlapDropsLaterStart(t *testing.T) {
	// "Occupy The Hill" covers "Hill"; the earlier, longer span wins and
	// the contained candidate is swept away.
	content := "Then Occupy The Hill at dawn."
	details := map[string]TaskDetail{
		"Occupy The Hill": detailFor("Occupy The Hill"),
		"Hill":            detailFor("Hill"),
	}

	spans := Resolve(content, details)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d: %+v", len(spans), spans)
	}
	if spans[0].TaskName != "Occupy The Hill" {
		t.Errorf("expected the earlier-starting span to win, got %q", spans[0].TaskName)
	}
	checkInvariants(t, content, spans)
}

func TestResolve_LongerSpanWinsAtSameStart(t *testing.T) {
	content := "Units ATTACK BY FIRE on order."
	details := map[string]TaskDetail{
		"Attack":         detailFor("Attack"),
		"Attack by Fire": detailFor("Attack by Fire"),
	}

	spans := Resolve(content, details)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d: %+v", len(spans), spans)
	}
	if spans[0].TaskName != "Attack by Fire" {
		t.Errorf("expected longer span to win the tie, got %q", spans[0].TaskName)
	}
	if spans[0].MatchedText != "ATTACK BY FIRE" {
		t.Errorf("expected matched text ATTACK BY FIRE, got %q", spans[0].MatchedText)
	}
}

func TestResolve_IdenticalRangeDedupe(t *testing.T) {
	// Two catalog entries that match the same range collapse to one span,
	// deterministically choosing the smaller task name.
	content := "We will seize the bridge."
	details := map[string]TaskDetail{
		"SEIZE": detailFor("SEIZE"),
		"Seize": detailFor("Seize"),
	}

	spans := Resolve(content, details)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d: %+v", len(spans), spans)
	}
	if spans[0].TaskName != "SEIZE" {
		t.Errorf("expected deterministic winner SEIZE, got %q", spans[0].TaskName)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	content := "Seize, occupy, and secure. Then SEIZE again and conduct reconnaissance."
	details := map[string]TaskDetail{
		"Seize":                  detailFor("Seize"),
		"Occupy":                 detailFor("Occupy"),
		"Secure":                 detailFor("Secure"),
		"Conduct Reconnaissance": detailFor("Conduct Reconnaissance"),
	}

	first := Resolve(content, details)
	second := Resolve(content, details)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolve not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	checkInvariants(t, content, first)
}

func TestResolve_NoTasksOrNoContent(t *testing.T) {
	if spans := Resolve("", map[string]TaskDetail{"Seize": detailFor("Seize")}); spans != nil {
		t.Errorf("empty content: expected nil, got %+v", spans)
	}
	if spans := Resolve("some text", nil); spans != nil {
		t.Errorf("no tasks: expected nil, got %+v", spans)
	}
	if spans := Resolve("nothing matches here", map[string]TaskDetail{"Seize": detailFor("Seize")}); spans != nil {
		t.Errorf("no matches: expected nil, got %+v", spans)
	}
}
