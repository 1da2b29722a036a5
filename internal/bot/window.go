package bot

import (
	"math"
	"time"

	"pumpstrategy/internal/models"
)

// ============================================================
// RollingWindow - временное окно числовых выборок
// ============================================================

// DefaultMaxSamples - верхняя граница количества выборок в окне
const DefaultMaxSamples = 1000

// minElapsedSecs - меньший интервал считается нулевым при расчёте наклона
const minElapsedSecs = 0.001

type sample struct {
	at    time.Time
	value float64
}

// RollingWindow хранит выборки (время, значение) не старше duration.
//
// Инварианты после любой операции:
// - все выборки моложе duration относительно now()
// - количество выборок ≤ maxSamples, вытесняются самые старые
//
// Не потокобезопасен: владелец (DeltaTracker, менеджеры) сериализует доступ.
type RollingWindow struct {
	samples    []sample
	duration   time.Duration
	maxSamples int
	now        func() time.Time
}

// NewRollingWindow создаёт окно с лимитом DefaultMaxSamples
func NewRollingWindow(duration time.Duration) *RollingWindow {
	return NewRollingWindowWithClock(duration, DefaultMaxSamples, time.Now)
}

// NewRollingWindowWithClock создаёт окно с заданными лимитом и часами
func NewRollingWindowWithClock(duration time.Duration, maxSamples int, now func() time.Time) *RollingWindow {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	if now == nil {
		now = time.Now
	}
	return &RollingWindow{
		samples:    make([]sample, 0, 16),
		duration:   duration,
		maxSamples: maxSamples,
		now:        now,
	}
}

// Add добавляет выборку с текущим временем
func (w *RollingWindow) Add(value float64) {
	w.samples = append(w.samples, sample{at: w.now(), value: value})
	w.prune()

	if excess := len(w.samples) - w.maxSamples; excess > 0 {
		w.samples = append(w.samples[:0], w.samples[excess:]...)
	}
}

// prune удаляет выборки старше duration
func (w *RollingWindow) prune() {
	cutoff := w.now().Add(-w.duration)
	i := 0
	for i < len(w.samples) && w.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
}

// Count возвращает количество актуальных выборок
func (w *RollingWindow) Count() int {
	w.prune()
	return len(w.samples)
}

// IsEmpty - окно пусто
func (w *RollingWindow) IsEmpty() bool {
	return w.Count() == 0
}

// Duration возвращает длительность окна
func (w *RollingWindow) Duration() time.Duration {
	return w.duration
}

// Delta = последнее - первое, 0 при менее чем двух выборках
func (w *RollingWindow) Delta() float64 {
	w.prune()
	if len(w.samples) < 2 {
		return 0
	}
	return w.samples[len(w.samples)-1].value - w.samples[0].value
}

// Sum возвращает сумму значений
func (w *RollingWindow) Sum() float64 {
	w.prune()
	var sum float64
	for _, s := range w.samples {
		sum += s.value
	}
	return sum
}

// Average возвращает среднее, 0 для пустого окна
func (w *RollingWindow) Average() float64 {
	n := w.Count()
	if n == 0 {
		return 0
	}
	return w.Sum() / float64(n)
}

// Latest возвращает последнее значение, 0 для пустого окна
func (w *RollingWindow) Latest() float64 {
	w.prune()
	if len(w.samples) == 0 {
		return 0
	}
	return w.samples[len(w.samples)-1].value
}

// Oldest возвращает самое старое актуальное значение, 0 для пустого окна
func (w *RollingWindow) Oldest() float64 {
	w.prune()
	if len(w.samples) == 0 {
		return 0
	}
	return w.samples[0].value
}

// Min возвращает минимум, 0 для пустого окна
func (w *RollingWindow) Min() float64 {
	w.prune()
	if len(w.samples) == 0 {
		return 0
	}
	m := w.samples[0].value
	for _, s := range w.samples[1:] {
		m = math.Min(m, s.value)
	}
	return m
}

// Max возвращает максимум, 0 для пустого окна
func (w *RollingWindow) Max() float64 {
	w.prune()
	if len(w.samples) == 0 {
		return 0
	}
	m := w.samples[0].value
	for _, s := range w.samples[1:] {
		m = math.Max(m, s.value)
	}
	return m
}

// StdDev - выборочное стандартное отклонение (n-1), 0 при менее чем двух выборках
func (w *RollingWindow) StdDev() float64 {
	n := w.Count()
	if n < 2 {
		return 0
	}
	avg := w.Average()
	var sq float64
	for _, s := range w.samples {
		d := s.value - avg
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// Slope - скорость изменения в секунду между первой и последней выборкой
func (w *RollingWindow) Slope() float64 {
	w.prune()
	return slopeOf(w.samples)
}

// Velocity - синоним Slope (первая производная)
func (w *RollingWindow) Velocity() float64 {
	return w.Slope()
}

// Acceleration - изменение наклона: окно делится пополам,
// разность наклонов половин делится на половину общего времени.
// 0 при менее чем трёх выборках.
func (w *RollingWindow) Acceleration() float64 {
	w.prune()
	n := len(w.samples)
	if n < 3 {
		return 0
	}

	mid := n / 2
	firstSlope := slopeOf(w.samples[:mid])
	secondSlope := slopeOf(w.samples[mid:])

	total := w.samples[n-1].at.Sub(w.samples[0].at).Seconds()
	if total <= minElapsedSecs {
		return 0
	}
	return (secondSlope - firstSlope) / (total / 2)
}

// Trend переводит наклон в 5-уровневый тренд
func (w *RollingWindow) Trend(threshold float64) models.Trend {
	return models.TrendFromSlope(w.Slope(), threshold)
}

// Values возвращает копию актуальных значений в порядке добавления
func (w *RollingWindow) Values() []float64 {
	w.prune()
	out := make([]float64, len(w.samples))
	for i, s := range w.samples {
		out[i] = s.value
	}
	return out
}

// Clear удаляет все выборки
func (w *RollingWindow) Clear() {
	w.samples = w.samples[:0]
}

func slopeOf(samples []sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	first, last := samples[0], samples[len(samples)-1]
	elapsed := last.at.Sub(first.at).Seconds()
	if elapsed < minElapsedSecs {
		return 0
	}
	return (last.value - first.value) / elapsed
}
