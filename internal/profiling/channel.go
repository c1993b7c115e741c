// Package profiling summarizes the sample distribution of brick channels.
package profiling

import (
	"math"

	"gobrick/domain/brick"

	"github.com/montanaflynn/stats"
)

// ChannelProfile describes the finite samples of one channel
type ChannelProfile struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	NonFinite int     `json:"nonFinite"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stdDev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Median    float64 `json:"median"`
	Q25       float64 `json:"q25"`
	Q75       float64 `json:"q75"`
	Skewness  float64 `json:"skewness"`
	Kurtosis  float64 `json:"kurtosis"`
	Outliers  int     `json:"outliers"`
}

// ProfileBrick profiles every channel of b in wire order
func ProfileBrick(b *brick.Brick) ([]ChannelProfile, error) {
	out := make([]ChannelProfile, 0, len(brick.ChannelOrder))
	for _, name := range brick.ChannelOrder {
		ch, ok := b.Channel(name)
		if !ok {
			continue
		}
		p, err := ProfileChannel(name, ch.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ProfileChannel computes summary statistics over the finite samples of data.
// A channel without finite samples yields a zero profile with NonFinite set.
func ProfileChannel(name string, data []float32) (ChannelProfile, error) {
	profile := ChannelProfile{Name: name}
	values := make([]float64, 0, len(data))
	for _, v := range data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			profile.NonFinite++
			continue
		}
		values = append(values, f)
	}
	profile.Count = len(values)
	if len(values) == 0 {
		return profile, nil
	}

	var err error
	if profile.Mean, err = stats.Mean(values); err != nil {
		return profile, err
	}
	if profile.StdDev, err = stats.StandardDeviation(values); err != nil {
		return profile, err
	}
	if profile.Min, err = stats.Min(values); err != nil {
		return profile, err
	}
	if profile.Max, err = stats.Max(values); err != nil {
		return profile, err
	}
	if profile.Median, err = stats.Median(values); err != nil {
		return profile, err
	}
	if profile.Q25, err = stats.Percentile(values, 25); err != nil {
		return profile, err
	}
	if profile.Q75, err = stats.Percentile(values, 75); err != nil {
		return profile, err
	}

	profile.Skewness = skewness(values, profile.Mean, profile.StdDev)
	profile.Kurtosis = kurtosis(values, profile.Mean, profile.StdDev)
	profile.Outliers = countOutliers(values, profile.Q25, profile.Q75)
	return profile, nil
}

// skewness is the adjusted Fisher-Pearson coefficient
func skewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// kurtosis is the bias-corrected sample kurtosis (3 for a normal sample)
func kurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	excess := (sum/n-3)*(n-1)/((n-2)*(n-3)) + 6/(n+1)
	return excess + 3
}

// countOutliers applies the 1.5 IQR fence
func countOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lo, hi := q25-1.5*iqr, q75+1.5*iqr
	n := 0
	for _, x := range data {
		if x < lo || x > hi {
			n++
		}
	}
	return n
}
