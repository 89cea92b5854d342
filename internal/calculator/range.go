package calculator

import (
	"errors"
	"math"

	"PipGauge/internal/model"
)

// DayRange scans the given bars and returns the session high and low.
func DayRange(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// AverageBarRange computes the mean high-low spread over the most recent n
// bars, at whatever timeframe the bars carry. Used to size the visible price
// band when the current session has barely moved.
func AverageBarRange(bars []model.Bar, n int) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no bars provided")
	}
	if n <= 0 {
		return 0, errors.New("n must be positive")
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	count := 0
	for _, b := range bars[start:] {
		sum += b.High - b.Low
		count++
	}
	return sum / float64(count), nil
}

// RangePosition returns where a price sits within [low, high], clamped to
// 0.0~1.0, for the day-range meter needle.
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
