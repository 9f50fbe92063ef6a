package carbon

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oggatonama/oggatonama/app/models"
	"github.com/oggatonama/oggatonama/internal/pkg/jobqueue"
)

// NewMiddleware returns the tracking middleware. Recording happens after the
// response is built and entirely off the request path: the record goes to the
// background queue and the Redis realtime buckets, and neither failure mode
// ever surfaces to the client.
func NewMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		estimate := EstimateRequest(len(c.Request().Body()), len(c.Response().Body()), elapsed)

		record := &models.CarbonEmission{
			Endpoint:         c.Path(),
			Method:           c.Method(),
			BytesTransferred: estimate.Bytes,
			CO2Grams:         estimate.CO2Grams,
			EnergyJoules:     estimate.EnergyJoules,
			ResponseTimeMS:   elapsed.Milliseconds(),
			UserAgent:        c.Get(fiber.HeaderUserAgent),
			IPAddress:        c.IP(),
		}

		go func() {
			recordRealtime(record.CO2Grams)
			jobqueue.EnqueueCarbonRecord(record)
		}()

		return err
	}
}
