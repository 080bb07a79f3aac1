package jobs

import "testing"

func TestParseComplexity(t *testing.T) {
	cases := []struct {
		in   string
		want Complexity
		ok   bool
	}{
		{"", ComplexityMedium, true},
		{"simple", ComplexitySimple, true},
		{"MEDIUM", ComplexityMedium, true},
		{"  complex  ", ComplexityComplex, true},
		{"extreme", "", false},
		{"simples", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseComplexity(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseComplexity(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusQueued.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("queued and processing are not terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed and failed are terminal")
	}
}
