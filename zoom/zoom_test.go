package zoom

import (
	"math"
	"testing"
)

func TestPercentToIndex(t *testing.T) {
	ratios := []int{100, 200, 300, 400}

	tests := []struct {
		name     string
		desired  int
		expected int
	}{
		{"between adjacent entries picks lower", 250, 1},
		{"below table", 50, 0},
		{"first entry", 100, 0},
		{"above table", 1000, 3},
		{"exact interior entry moves past it", 200, 2},
		{"exact last entry", 400, 3},
		{"just above first", 101, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentToIndex(ratios, tt.desired); got != tt.expected {
				t.Errorf("PercentToIndex(%v, %d): expected %d, got %d", ratios, tt.desired, tt.expected, got)
			}
		})
	}
}

func TestPercentToIndex_EmptyTable(t *testing.T) {
	if got := PercentToIndex(nil, 250); got != 0 {
		t.Errorf("Expected 0 for empty table, got %d", got)
	}
}

func TestClampFactor(t *testing.T) {
	ratios := []int{100, 150, 200, 400}

	cases := []struct {
		in, expected float64
	}{
		{0.5, 1.0},
		{1.0, 1.0},
		{-3, 1.0},
		{2.5, 2.5},
		{4.0, 4.0},
		{9.0, 4.0},
	}
	for _, c := range cases {
		if got := ClampFactor(c.in, ratios); got != c.expected {
			t.Errorf("ClampFactor(%v): expected %v, got %v", c.in, c.expected, got)
		}
	}

	if got := ClampFactor(7, nil); got != 7 {
		t.Errorf("Expected unclamped upper bound without zoom table, got %v", got)
	}
}

func TestResolve(t *testing.T) {
	ratios := []int{100, 200, 300, 400}

	factor, index := Resolve(2.5, ratios)
	if factor != 2.5 || index != 1 {
		t.Errorf("Expected (2.5, 1), got (%v, %d)", factor, index)
	}

	factor, index = Resolve(0.2, ratios)
	if factor != 1.0 || index != 0 {
		t.Errorf("Expected (1.0, 0), got (%v, %d)", factor, index)
	}

	factor, index = Resolve(12, ratios)
	if factor != 4.0 || index != 3 {
		t.Errorf("Expected (4.0, 3), got (%v, %d)", factor, index)
	}

	for _, huge := range []float64{1e17, 1e20, 1e300, math.Inf(1)} {
		factor, index = Resolve(huge, ratios)
		if factor != 4.0 || index != 3 {
			t.Errorf("Resolve(%v): expected (4.0, 3), got (%v, %d)", huge, factor, index)
		}
	}
}

func TestFactorToPercent(t *testing.T) {
	cases := []struct {
		in       float64
		expected int
	}{
		{2.5, 250},
		{1.999, 199},
		{1e300, math.MaxInt32},
		{math.Inf(1), math.MaxInt32},
		{-1e300, math.MinInt32},
		{math.NaN(), 0},
	}
	for _, c := range cases {
		if got := FactorToPercent(c.in); got != c.expected {
			t.Errorf("FactorToPercent(%v): expected %d, got %d", c.in, c.expected, got)
		}
	}
}

func TestMaxFactor(t *testing.T) {
	if got := MaxFactor([]int{100, 350}); got != 3.5 {
		t.Errorf("Expected 3.5, got %v", got)
	}
	if got := MaxFactor(nil); got != MinFactor {
		t.Errorf("Expected %v, got %v", MinFactor, got)
	}
}
