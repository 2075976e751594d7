package utils

import (
	"math"
	"testing"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, total int
		expected    float64
	}{
		{"none of four", 0, 4, 0},
		{"one of four", 1, 4, 25},
		{"two of four", 2, 4, 50},
		{"three of four", 3, 4, 75},
		{"four of four", 4, 4, 100},
		{"one third", 1, 3, 33.3},
		{"two thirds", 2, 3, 66.7},
		{"empty", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.part, tt.total); got != tt.expected {
				t.Errorf("Percent(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.expected)
			}
		})
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in, expected float64
	}{
		{56.98, 57.0},
		{50.04, 50.0},
		{62.25, 62.3},
		{90, 90},
	}
	for _, tt := range tests {
		if got := Round1(tt.in); got != tt.expected {
			t.Errorf("Round1(%v) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestNonFinite(t *testing.T) {
	if got := Clamp(math.NaN(), 50, 90); got != 50 {
		t.Errorf("Clamp(NaN, 50, 90) = %v, want 50", got)
	}
	if got := Clamp(math.Inf(1), 50, 90); got != 90 {
		t.Errorf("Clamp(+Inf, 50, 90) = %v, want 90", got)
	}
	if got := Clamp(math.Inf(-1), 50, 90); got != 50 {
		t.Errorf("Clamp(-Inf, 50, 90) = %v, want 50", got)
	}
	if got := Round1(math.NaN()); !math.IsNaN(got) {
		t.Errorf("Round1(NaN) = %v, want NaN", got)
	}
	if got := Round(math.Inf(1), 2); !math.IsInf(got, 1) {
		t.Errorf("Round(+Inf, 2) = %v, want +Inf", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{75, 50, 100}); got != 75 {
		t.Errorf("Mean() = %v, want 75", got)
	}
	if got := Mean([]float64{25, 50, 50}); got != 41.7 {
		t.Errorf("Mean() = %v, want 41.7", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in       float64
		expected int
	}{
		{-0.4, 0}, {0.49, 0}, {0.5, 1}, {1.5, 2}, {2.49, 2},
	}
	for _, tt := range tests {
		if got := RoundHalfUp(tt.in); got != tt.expected {
			t.Errorf("RoundHalfUp(%v) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}
