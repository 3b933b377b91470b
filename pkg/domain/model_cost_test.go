package domain

import (
	"math"
	"testing"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model      string
		prompt     int
		completion int
		want       float64
		wantOK     bool
	}{
		{"gpt-3.5-turbo", 1000, 1000, 0.002, true},
		{"gpt-4o", 2000, 500, 0.01, true},
		{"gpt-4o-mini", 0, 0, 0, true},
		{"davinci", 1000, 1000, 0, false},
	}

	for _, test := range tests {
		got, ok := EstimateCost(test.model, test.prompt, test.completion)
		if ok != test.wantOK || math.Abs(got-test.want) > 1e-9 {
			t.Errorf("EstimateCost(%s, %d, %d) = (%v, %v), want (%v, %v)",
				test.model, test.prompt, test.completion, got, ok, test.want, test.wantOK)
		}
	}
}

func TestSupportedModelsArePriced(t *testing.T) {
	costs := DefaultModelCosts()
	for _, m := range SupportedModels {
		if _, ok := costs[m]; !ok {
			t.Errorf("model %s has no price", m)
		}
	}
}
