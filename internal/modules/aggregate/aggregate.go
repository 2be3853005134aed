// Package aggregate provides pure transforms over metric series: smoothing,
// success-rate bucketing, normalization and composite scoring. No function
// keeps state or mutates its inputs.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned when series that must align do not.
var ErrLengthMismatch = errors.New("series length mismatch")

// BucketRate is the success rate of one bucket, tagged with the episode of the
// bucket's last element.
type BucketRate struct {
	Episode int     `json:"episode"`
	Rate    float64 `json:"rate"`
}

// MovingAverage returns the trailing ("valid") simple moving average of
// series: element i is the mean of series[i : i+window], so the result has
// len(series)-window+1 values. A series shorter than the window is returned
// unchanged (as a copy). A window below 2 is the identity.
func MovingAverage(series []float64, window int) []float64 {
	if window <= 1 || len(series) < window {
		return append([]float64{}, series...)
	}

	// talib.Sma leaves the first window-1 slots empty.
	sma := talib.Sma(series, window)
	return append([]float64{}, sma[window-1:]...)
}

// MovingAverageWithEpisodes smooths series and returns the episode numbers the
// smoothed values align with: the episode of each window's last element.
// When no smoothing happens the episodes are returned as given.
func MovingAverageWithEpisodes(episodes []int, series []float64, window int) ([]int, []float64, error) {
	if len(episodes) != len(series) {
		return nil, nil, fmt.Errorf("%w: %d episodes, %d values", ErrLengthMismatch, len(episodes), len(series))
	}

	smoothed := MovingAverage(series, window)
	offset := len(series) - len(smoothed)
	return append([]int{}, episodes[offset:]...), smoothed, nil
}

// SuccessRateByBucket splits series into consecutive buckets of bucketSize
// values (the last may be shorter) and returns, per bucket, the percentage of
// values at or above threshold. Episodes label each bucket with the episode of
// its last element; when episodes is nil the 1-based position is used. A
// bucketSize below 1 puts the whole series in one bucket.
func SuccessRateByBucket(episodes []int, series []float64, bucketSize int, threshold float64) ([]BucketRate, error) {
	if episodes != nil && len(episodes) != len(series) {
		return nil, fmt.Errorf("%w: %d episodes, %d values", ErrLengthMismatch, len(episodes), len(series))
	}
	if len(series) == 0 {
		return []BucketRate{}, nil
	}
	if bucketSize < 1 {
		bucketSize = len(series)
	}

	rates := make([]BucketRate, 0, (len(series)+bucketSize-1)/bucketSize)
	for start := 0; start < len(series); start += bucketSize {
		end := start + bucketSize
		if end > len(series) {
			end = len(series)
		}

		hits := 0
		for _, v := range series[start:end] {
			if v >= threshold {
				hits++
			}
		}

		episode := end
		if episodes != nil {
			episode = episodes[end-1]
		}
		rates = append(rates, BucketRate{
			Episode: episode,
			Rate:    float64(hits) / float64(end-start) * 100,
		})
	}
	return rates, nil
}

// NormalizeToScale divides every value by the maximum and multiplies by
// scaleMax. An empty input gives an empty output. When the maximum is not
// positive every output is 0.
func NormalizeToScale(values []float64, scaleMax float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	max := floats.Max(values)
	if max <= 0 {
		return out
	}

	floats.ScaleTo(out, scaleMax/max, values)
	return out
}

// CompositeScore averages equal-length normalized series element-wise,
// yielding one score per position on the same scale as the inputs.
func CompositeScore(normalized [][]float64) ([]float64, error) {
	if len(normalized) == 0 {
		return []float64{}, nil
	}

	n := len(normalized[0])
	sum := make([]float64, n)
	for i, series := range normalized {
		if len(series) != n {
			return nil, fmt.Errorf("%w: series %d has %d values, expected %d", ErrLengthMismatch, i, len(series), n)
		}
		floats.Add(sum, series)
	}

	floats.Scale(1/float64(len(normalized)), sum)
	return sum, nil
}
