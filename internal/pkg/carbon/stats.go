package carbon

import (
	"math"
	"sort"
	"time"

	"github.com/oggatonama/oggatonama/app/models"
	"github.com/oggatonama/oggatonama/app/repository"
)

// Stats is the aggregate view for one timeframe.
type Stats struct {
	Timeframe             string              `json:"timeframe"`
	TotalRequests         int                 `json:"totalRequests"`
	TotalCO2Grams         float64             `json:"totalCO2Grams"`
	TotalBytesTransferred int64               `json:"totalBytesTransferred"`
	TotalEnergyJoules     float64             `json:"totalEnergyJoules"`
	AverageResponseTime   int64               `json:"averageResponseTime"`
	EquivalentTreesNeeded float64             `json:"equivalentTreesNeeded"`
	EquivalentKmDriven    float64             `json:"equivalentKmDriven"`
	CO2PerRequest         float64             `json:"co2PerRequest"` // milligrams
	EndpointBreakdown     []EndpointBreakdown `json:"endpointBreakdown"`
}

// EndpointBreakdown aggregates emissions for one method+path.
type EndpointBreakdown struct {
	Endpoint        string  `json:"endpoint"`
	Requests        int     `json:"requests"`
	TotalCO2        float64 `json:"totalCO2"`
	TotalBytes      int64   `json:"totalBytes"`
	AvgResponseTime int64   `json:"avgResponseTime"`
}

// WindowFor maps a timeframe name to its duration; unknown names fall back
// to 24 hours.
func WindowFor(timeframe string) time.Duration {
	switch timeframe {
	case "1h":
		return time.Hour
	case "24h":
		return 24 * time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// GetStats loads the records in the requested window and aggregates them.
func GetStats(timeframe string) (*Stats, error) {
	since := time.Now().Add(-WindowFor(timeframe))
	records, err := repository.GetGlobalFactory().GetCarbonRepository().ListSince(since)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(timeframe, records)
	return &stats, nil
}

// ComputeStats aggregates a record set with a single linear scan.
func ComputeStats(timeframe string, records []models.CarbonEmission) Stats {
	stats := Stats{
		Timeframe:         timeframe,
		EndpointBreakdown: []EndpointBreakdown{},
	}
	if len(records) == 0 {
		return stats
	}

	var totalCO2, totalEnergy float64
	var totalBytes, totalResponseMS int64
	byEndpoint := map[string]*EndpointBreakdown{}

	for i := range records {
		rec := &records[i]
		totalCO2 += rec.CO2Grams
		totalEnergy += rec.EnergyJoules
		totalBytes += rec.BytesTransferred
		totalResponseMS += rec.ResponseTimeMS

		key := rec.Method + " " + rec.Endpoint
		entry, ok := byEndpoint[key]
		if !ok {
			entry = &EndpointBreakdown{Endpoint: key}
			byEndpoint[key] = entry
		}
		entry.Requests++
		entry.TotalCO2 += rec.CO2Grams
		entry.TotalBytes += rec.BytesTransferred
		entry.AvgResponseTime += rec.ResponseTimeMS
	}

	count := len(records)
	stats.TotalRequests = count
	stats.TotalCO2Grams = round(totalCO2, 6)
	stats.TotalBytesTransferred = totalBytes
	stats.TotalEnergyJoules = round(totalEnergy, 3)
	stats.AverageResponseTime = int64(math.Round(float64(totalResponseMS) / float64(count)))
	stats.EquivalentTreesNeeded = round(totalCO2/TreeAbsorptionGramsPerDay, 6)
	stats.EquivalentKmDriven = round(totalCO2*1000/CarGramsPerKM, 3)
	stats.CO2PerRequest = round(totalCO2/float64(count)*1000, 3) // milligrams

	breakdown := make([]EndpointBreakdown, 0, len(byEndpoint))
	for _, entry := range byEndpoint {
		entry.AvgResponseTime = int64(math.Round(float64(entry.AvgResponseTime) / float64(entry.Requests)))
		entry.TotalCO2 = round(entry.TotalCO2, 6)
		breakdown = append(breakdown, *entry)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].TotalCO2 > breakdown[j].TotalCO2
	})
	if len(breakdown) > 10 {
		breakdown = breakdown[:10] // top 10 endpoints
	}
	stats.EndpointBreakdown = breakdown

	return stats
}

func round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
