package quote

import (
	"strings"
	"testing"
)

func TestLocateExact(t *testing.T) {
	doc := "Intro. Our team ships weekly using CI/CD pipelines. Outro."
	pos, ok := Locate("Our team ships weekly using CI/CD pipelines.", doc)
	if !ok || pos != strings.Index(doc, "Our team") {
		t.Fatalf("got pos=%d ok=%v", pos, ok)
	}
}

func TestLocateIgnoresCase(t *testing.T) {
	doc := "Backups run NIGHTLY to cold storage."
	pos, ok := Locate("backups run nightly", doc)
	if !ok || pos != 0 {
		t.Fatalf("got pos=%d ok=%v", pos, ok)
	}
}

func TestLocateAcrossCollapsedWhitespace(t *testing.T) {
	doc := "Sentence one. The quick brown  fox jumps."
	pos, ok := Locate("the quick brown fox", doc)
	if !ok || pos != strings.Index(doc, "The quick") {
		t.Fatalf("got pos=%d ok=%v", pos, ok)
	}
	if pos, ok := Locate("completely unrelated text", doc); ok {
		t.Fatalf("expected no match, got %d", pos)
	}
}

func TestLocateWithinTolerance(t *testing.T) {
	doc := "Notes: we deploy to production every Tuesday after review."
	// One missing letter; tolerance for this length is 3.
	pos, ok := Locate("deploy to prodution every Tuesday", doc)
	if !ok {
		t.Fatalf("expected a fuzzy match")
	}
	if want := strings.Index(doc, "deploy"); pos != want {
		t.Fatalf("expected %d, got %d", want, pos)
	}
}

func TestLocateOutsideTolerance(t *testing.T) {
	doc := "Alerts page the on-call engineer through PagerDuty."
	if pos, ok := Locate("the database is replicated across regions", doc); ok {
		t.Fatalf("expected no match, got %d", pos)
	}
}

func TestLocateShortQuoteMinimumTolerance(t *testing.T) {
	// Tolerance never drops below two edits.
	if Tolerance(5) != 2 || Tolerance(40) != 4 {
		t.Fatalf("unexpected tolerance: %d %d", Tolerance(5), Tolerance(40))
	}
	pos, ok := Locate("kubrnetes", "we run kubernetes")
	if !ok || pos != 7 {
		t.Fatalf("got pos=%d ok=%v", pos, ok)
	}
}

func TestLocatePrefersEarliestOnTie(t *testing.T) {
	doc := "audit log. audit log."
	pos, ok := Locate("audit log", doc)
	if !ok || pos != 0 {
		t.Fatalf("got pos=%d ok=%v", pos, ok)
	}
}

func TestLocateCountsRunes(t *testing.T) {
	doc := "Résumé: naïve café policy"
	pos, ok := Locate("café policy", doc)
	if !ok || pos != 14 {
		t.Fatalf("got pos=%d ok=%v", pos, ok)
	}
}

func TestLocateEmpty(t *testing.T) {
	if _, ok := Locate("", "doc"); ok {
		t.Fatalf("empty quote should not match")
	}
	if _, ok := Locate("q", ""); ok {
		t.Fatalf("empty doc should not match")
	}
}
