package utils

import (
	"fmt"
	"time"
)

// time.go - утилиты для работы со временем
//
// Граница суток для сброса дневных лимитов и оставшееся время паузы.

// ============================================================
// Границы суток
// ============================================================

// GetDayStartFrom возвращает начало дня для указанного времени в UTC
//
// Пример:
//
//	GetDayStartFrom(2024-01-15 14:30:45 UTC) = 2024-01-15 00:00:00 UTC
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ============================================================
// Длительности
// ============================================================

// SecondsUntil возвращает целое число секунд от now до deadline (не меньше 0).
// Дробная часть отбрасывается.
func SecondsUntil(now, deadline time.Time) int64 {
	if !deadline.After(now) {
		return 0
	}
	return int64(deadline.Sub(now) / time.Second)
}

// FormatDuration форматирует продолжительность в компактный вид
//
// Примеры:
//   - "45s"
//   - "5m30s"
//   - "2h15m"
//   - "3d5h"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		if hours > 0 {
			return fmt.Sprintf("%dd%dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	case hours > 0:
		if minutes > 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		if seconds > 0 {
			return fmt.Sprintf("%dm%ds", minutes, seconds)
		}
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
