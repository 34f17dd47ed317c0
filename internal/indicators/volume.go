package indicators

// VolumeTrend classifies recent participation
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "INCREASING"
	VolumeDecreasing VolumeTrend = "DECREASING"
	VolumeStable     VolumeTrend = "STABLE"
)

// Volume thresholds
const (
	volumeTrendBand   = 0.2
	unusualMultiplier = 3.0
)

// VolumeAnalysis summarises the short-vs-long volume comparison
type VolumeAnalysis struct {
	ShortAvg float64
	LongAvg  float64
	Ratio    float64
	Trend    VolumeTrend
	Unusual  bool
}

// AnalyzeVolume compares the short average to the long average with ±20% bands
// and flags the latest sample when it exceeds 3× the long average.
// Returns nil when fewer than longPeriod samples are available.
func AnalyzeVolume(volumes []float64, shortPeriod, longPeriod int) *VolumeAnalysis {
	if shortPeriod < 1 || longPeriod < shortPeriod || len(volumes) < longPeriod {
		return nil
	}

	n := len(volumes)
	res := &VolumeAnalysis{
		ShortAvg: average(volumes[n-shortPeriod:]),
		LongAvg:  average(volumes[n-longPeriod:]),
		Trend:    VolumeStable,
	}
	if res.LongAvg <= 0 {
		return res
	}

	res.Ratio = res.ShortAvg / res.LongAvg
	switch {
	case res.ShortAvg > res.LongAvg*(1+volumeTrendBand):
		res.Trend = VolumeIncreasing
	case res.ShortAvg < res.LongAvg*(1-volumeTrendBand):
		res.Trend = VolumeDecreasing
	}
	res.Unusual = volumes[n-1] > unusualMultiplier*res.LongAvg
	return res
}
