package utils

import (
	"testing"
	"time"
)

// ============================================================
// Тесты границ суток
// ============================================================

func TestGetDayStartFrom(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)

	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			"midday UTC",
			time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC),
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"exact midnight",
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			// 01:00 MSK = 22:00 UTC предыдущего дня
			"other timezone",
			time.Date(2024, 1, 15, 1, 0, 0, 0, msk),
			time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetDayStartFrom(tt.input); !got.Equal(tt.expected) {
				t.Errorf("GetDayStartFrom(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты длительностей
// ============================================================

func TestSecondsUntil(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		expected int64
	}{
		{"future", now.Add(90 * time.Second), 90},
		{"fractional truncated", now.Add(1500 * time.Millisecond), 1},
		{"past", now.Add(-time.Second), 0},
		{"now", now, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecondsUntil(now, tt.deadline); got != tt.expected {
				t.Errorf("SecondsUntil() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{45 * time.Second, "45s"},
		{0, "0s"},
		{5*time.Minute + 30*time.Second, "5m30s"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{2 * time.Hour, "2h"},
		{3*24*time.Hour + 5*time.Hour, "3d5h"},
		{48 * time.Hour, "2d"},
		{-45 * time.Second, "45s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.input); got != tt.expected {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
