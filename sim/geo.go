package sim

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// MinLatencyMs is the floor applied to every simulated latency.
	MinLatencyMs = 1.0

	baseLatencyMs     = 5.0
	latencyPerKmMs    = 0.01
	jitterHalfWidthMs = 5.0
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the great-circle distance between two lat/lon points in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// EstimateBaseLatency maps a distance to a simulated one-way latency:
// 5ms + 0.01ms/km plus uniform noise in [-5, +5), floored at MinLatencyMs.
func EstimateBaseLatency(km float64, src Float64Source) float64 {
	return math.Max(MinLatencyMs, baseLatencyMs+km*latencyPerKmMs+uniform(src, jitterHalfWidthMs))
}
