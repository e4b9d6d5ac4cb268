package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-br/helpdesk-service/internal/service"
)

// MetricsHandler serves the staff dashboard report.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metricsService *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: metricsService}
}

// Report GET /tickets/metrics.
func (h *MetricsHandler) Report(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	query := service.MetricsQuery{TimeFormat: c.Query("time_format")}
	if start := parseTime(c.Query("start_date")); start != nil {
		query.StartDate = start
	}
	if end := parseTime(c.Query("end_date")); end != nil {
		query.EndDate = end
	}
	report, err := h.service.Report(c.Context(), actor, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
