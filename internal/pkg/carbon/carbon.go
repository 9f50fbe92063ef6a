// Package carbon estimates per-request CO2 emissions from HTTP traffic and
// aggregates them for the dashboard.
package carbon

import "time"

// Emission constants, based on published per-byte transfer estimates.
const (
	// CO2PerByte is grams of CO2 per byte transferred (40 nanograms).
	CO2PerByte = 0.00000004
	// EnergyPerByte is joules consumed per byte transferred.
	EnergyPerByte = 0.0000001
	// ServerEnergyPerMS is joules per millisecond of server processing.
	ServerEnergyPerMS = 0.01
	// NetworkOverhead inflates payload bytes by 20% for protocol overhead.
	NetworkOverhead = 1.2

	// TreeAbsorptionGramsPerDay is grams of CO2 one tree absorbs per day.
	TreeAbsorptionGramsPerDay = 0.021
	// CarGramsPerKM is grams of CO2 an average car emits per kilometre.
	CarGramsPerKM = 404.0
)

// Estimate holds the derived emission figures for one request.
type Estimate struct {
	Bytes        int64
	CO2Grams     float64
	EnergyJoules float64
}

// EstimateRequest computes the emission figures for a request/response pair.
func EstimateRequest(requestBytes, responseBytes int, elapsed time.Duration) Estimate {
	total := float64(requestBytes+responseBytes) * NetworkOverhead
	ms := float64(elapsed.Milliseconds())
	return Estimate{
		Bytes:        int64(total + 0.5),
		CO2Grams:     total * CO2PerByte,
		EnergyJoules: total*EnergyPerByte + ms*ServerEnergyPerMS,
	}
}
