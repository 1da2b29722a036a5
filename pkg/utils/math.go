package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// math.go - математические утилиты для торговых компонентов
//
// Назначение:
// Вспомогательные функции для статистики окон, цен и единиц SOL.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - CalculateWeightedAverage: средневзвешенная цена (VWAP)
// - Mean / SampleStdDev: статистика по выборке
// - LinearInterpolate: интерполяция между контрольными точками
// - PctChange: изменение в процентах
// - LamportsToSOL / SOLToLamports: конвертация единиц без потери точности

// LamportsPerSOL - количество lamports в одном SOL
const LamportsPerSOL = 1_000_000_000

// CalculateWeightedAverage вычисляет средневзвешенное значение.
//
// Для VWAP:
//
//	VWAP = Σ(price_i × volume_i) / Σ(volume_i)
//
// Возвращает 0 если входные данные некорректны.
// Отрицательные веса пропускаются.
//
// Пример:
//
//	values  = [100.0, 101.0, 102.0]
//	weights = [10.0, 20.0, 10.0]
//	VWAP = (100*10 + 101*20 + 102*10) / (10+20+10) = 4040/40 = 101.0
func CalculateWeightedAverage(values, weights []float64) float64 {
	if len(values) == 0 || len(weights) == 0 {
		return 0
	}
	if len(values) != len(weights) {
		return 0
	}

	var sumWeighted, sumWeights float64
	for i := range values {
		if weights[i] < 0 {
			continue // Пропускаем отрицательные веса
		}
		sumWeighted += values[i] * weights[i]
		sumWeights += weights[i]
	}

	if sumWeights == 0 {
		return 0
	}
	return sumWeighted / sumWeights
}

// Mean возвращает среднее арифметическое, 0 для пустого слайса.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev возвращает выборочное стандартное отклонение (знаменатель n-1).
// Для менее чем двух значений возвращает 0.
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// LinearInterpolate возвращает значение в точке x на отрезке (x0,y0)-(x1,y1).
// При вырожденном отрезке возвращает y0.
func LinearInterpolate(x, x0, y0, x1, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// PctChange возвращает изменение from -> to в процентах.
// Для from == 0 возвращает 0.
func PctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// Sign возвращает -1, 0 или 1.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// LamportsToSOL переводит lamports в SOL.
func LamportsToSOL(lamports uint64) float64 {
	f, _ := decimal.NewFromInt(int64(lamports)).Div(decimal.NewFromInt(LamportsPerSOL)).Float64()
	return f
}

// SOLToLamports переводит SOL в lamports с округлением вниз.
func SOLToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(decimal.NewFromFloat(sol).Mul(decimal.NewFromInt(LamportsPerSOL)).Floor().IntPart())
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
