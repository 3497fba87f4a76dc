package models

import "testing"

func TestVerdictFor(t *testing.T) {
	cases := []struct {
		rate float64
		want IngestionVerdict
	}{
		{1.0, VerdictPerfect},
		{0.99, VerdictExcellent},
		{0.95, VerdictExcellent},
		{0.90, VerdictGood},
		{0.85, VerdictGood},
		{0.80, VerdictAcceptable},
		{0.70, VerdictAcceptable},
		{0.69, VerdictFailed},
		{0.0, VerdictFailed},
	}
	for _, c := range cases {
		if got := VerdictFor(c.rate); got != c.want {
			t.Errorf("VerdictFor(%.2f) = %s, want %s", c.rate, got, c.want)
		}
	}
}

func TestReportAccepted(t *testing.T) {
	accepted := &IngestionReport{Verdict: VerdictAcceptable}
	if !accepted.Accepted() {
		t.Error("acceptable verdict should be accepted")
	}
	rejected := &IngestionReport{Verdict: VerdictFailed}
	if rejected.Accepted() {
		t.Error("failed verdict should not be accepted")
	}
}
