package strategy

import "testing"

func TestBuildResolvesModes(t *testing.T) {
	cases := map[string]float64{
		"conservative": 0.05,
		"CONSERVATIVE": 0.05,
		"balanced":     0.10,
		"aggressive":   0.20,
		"":             0.10,
		"unknown":      0.10,
	}
	for mode, want := range cases {
		if got := Build(mode, 0).RiskFraction; got != want {
			t.Fatalf("mode %q: expected fraction %.2f got %.2f", mode, want, got)
		}
	}
}

func TestBuildCustomFraction(t *testing.T) {
	if got := Build("custom", 0.33).RiskFraction; got != 0.33 {
		t.Fatalf("expected custom fraction honored, got %.2f", got)
	}
	if got := Build("custom", 0).RiskFraction; got != DefaultRiskFraction {
		t.Fatalf("expected default for zero custom fraction, got %.2f", got)
	}
	if got := Build("custom", 1.5).RiskFraction; got != DefaultRiskFraction {
		t.Fatalf("expected default for fraction above 1, got %.2f", got)
	}
}
