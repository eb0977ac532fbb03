package intent

import "testing"

func TestIsSmalltalk(t *testing.T) {
	c := NewDefaultClassifier()
	cases := []struct {
		message string
		want    bool
	}{
		{"Hello!", true},
		{"hallo", true},
		{"Danke", true},
		{"Hello, what is the title of this page?", false},
		{"hi, how many pages does this site have", false},
		{"Hello there, I was wondering whether you could possibly help me with something", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := c.IsSmalltalk(tc.message); got != tc.want {
			t.Fatalf("IsSmalltalk(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestTitleLookups(t *testing.T) {
	c := NewDefaultClassifier()
	if !c.IsSiteTitleLookup("What is the site title?") {
		t.Fatalf("site title lookup not detected")
	}
	if !c.IsSiteTitleLookup("Wie heißt diese Website?") {
		t.Fatalf("german site title lookup not detected")
	}
	if !c.IsPageTitleLookup("Tell me the title of this page") {
		t.Fatalf("page title lookup not detected")
	}
	if c.IsPageTitleLookup("Tell me about dogs") {
		t.Fatalf("false positive page title lookup")
	}
}

func TestWantsSummary(t *testing.T) {
	c := NewDefaultClassifier()
	for _, message := range []string{
		"Summarize this page",
		"Kannst du das zusammenfassen?",
		"Give me a summary",
	} {
		if !c.WantsSummary(message) {
			t.Fatalf("WantsSummary(%q) = false", message)
		}
	}
	if c.WantsSummary("What does this page say about pricing?") {
		t.Fatalf("summary intent false positive")
	}
}

func TestNeedsGroundedResponse(t *testing.T) {
	c := NewDefaultClassifier()
	cases := []struct {
		query string
		mode  string
		want  bool
	}{
		{"anything", "summarize", true},
		{"anything", "search", true},
		{"anything", "related", true},
		{"What is on this page?", "page", true},
		{"hello", "page", false},
		{"anything", "other", false},
	}
	for _, tc := range cases {
		if got := c.NeedsGroundedResponse(tc.query, tc.mode); got != tc.want {
			t.Fatalf("NeedsGroundedResponse(%q, %q) = %v, want %v", tc.query, tc.mode, got, tc.want)
		}
	}
}
