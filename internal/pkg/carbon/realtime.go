package carbon

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/oggatonama/oggatonama/internal/pkg/cache"
)

const (
	realtimeRequestsKey = "carbon:rt:requests:%d" // unix minute
	realtimeCO2Key      = "carbon:rt:co2:%d"
	realtimeWindow      = 5 // minutes
	realtimeBucketTTL   = 10 * time.Minute
)

// RealtimeSnapshot is the trailing-window view served to the dashboard widget.
type RealtimeSnapshot struct {
	Requests                  int64   `json:"requestsLastFiveMinutes"`
	CO2Grams                  float64 `json:"co2GramsLastFiveMinutes"`
	CurrentEmissionPerRequest float64 `json:"currentEmissionPerRequest"` // milligrams
	Timestamp                 string  `json:"timestamp"`
}

// recordRealtime bumps the current minute bucket in Redis.
func recordRealtime(co2Grams float64) {
	ctx := context.Background()
	rdb := cache.GetClient()
	minute := time.Now().Unix() / 60

	pipe := rdb.Pipeline()
	reqKey := fmt.Sprintf(realtimeRequestsKey, minute)
	co2Key := fmt.Sprintf(realtimeCO2Key, minute)
	pipe.Incr(ctx, reqKey)
	pipe.IncrByFloat(ctx, co2Key, co2Grams)
	pipe.Expire(ctx, reqKey, realtimeBucketTTL)
	pipe.Expire(ctx, co2Key, realtimeBucketTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Errorf("[Carbon] Failed to update realtime buckets: %v", err)
	}
}

// GetRealtime sums the buckets of the trailing five minutes.
func GetRealtime() (*RealtimeSnapshot, error) {
	ctx := context.Background()
	rdb := cache.GetClient()
	now := time.Now()
	minute := now.Unix() / 60

	var requests int64
	var co2 float64
	for i := int64(0); i < realtimeWindow; i++ {
		bucket := minute - i
		if n, err := rdb.Get(ctx, fmt.Sprintf(realtimeRequestsKey, bucket)).Int64(); err == nil {
			requests += n
		}
		if g, err := rdb.Get(ctx, fmt.Sprintf(realtimeCO2Key, bucket)).Float64(); err == nil {
			co2 += g
		}
	}

	snapshot := &RealtimeSnapshot{
		Requests:  requests,
		CO2Grams:  round(co2, 6),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if requests > 0 {
		snapshot.CurrentEmissionPerRequest = round(co2/float64(requests)*1000, 3)
	}
	return snapshot, nil
}
