package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oggatonama/oggatonama/internal/pkg/apperr"
	"github.com/oggatonama/oggatonama/internal/pkg/carbon"
)

// HandleTest is a liveness probe for the SPA.
func HandleTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleCarbonStats returns aggregated emission figures for the requested
// timeframe (1h, 24h, 7d or 30d; defaults to 24h).
func HandleCarbonStats(c *fiber.Ctx) error {
	timeframe := c.Query("timeframe", "24h")

	stats, err := carbon.GetStats(timeframe)
	if err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Failed to load emission statistics"))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// HandleCarbonRealtime returns the trailing five-minute emission snapshot.
func HandleCarbonRealtime(c *fiber.Ctx) error {
	snapshot, err := carbon.GetRealtime()
	if err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Failed to load realtime emissions"))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    snapshot,
	})
}
