package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdesk-br/helpdesk-service/internal/authz"
	"github.com/helpdesk-br/helpdesk-service/internal/domain"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	apperrors "github.com/helpdesk-br/helpdesk-service/pkg/util"
)

// Time bucket granularities for the tickets-over-time series.
const (
	TimeFormatDay   = "day"
	TimeFormatWeek  = "week"
	TimeFormatMonth = "month"
)

// MetricsQuery selects the reporting window and bucket granularity.
// Zero values fall back to the last month, bucketed by day.
type MetricsQuery struct {
	StartDate  *time.Time
	EndDate    *time.Time
	TimeFormat string
}

// CategoryCount is the ticket count for one category in the window.
type CategoryCount struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

// AssigneeMetrics summarizes one assignee's workload in the window.
type AssigneeMetrics struct {
	AssigneeID     string  `json:"assignee_id"`
	Name           string  `json:"name"`
	Total          int     `json:"total"`
	Resolved       int     `json:"resolved"`
	ResolutionRate float64 `json:"resolution_rate"`
}

// TimeBucket is one point of the tickets-over-time series.
type TimeBucket struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// MetricsReport is the aggregated dashboard payload.
type MetricsReport struct {
	StartDate          time.Time                   `json:"start_date"`
	EndDate            time.Time                   `json:"end_date"`
	TimeFormat         string                      `json:"time_format"`
	TotalTickets       int                         `json:"total_tickets"`
	StatusCounts       map[domain.TicketStatus]int `json:"status_counts"`
	CategoryCounts     []CategoryCount             `json:"category_counts"`
	AvgResolutionHours float64                     `json:"avg_resolution_hours"`
	TicketsByAssignee  []AssigneeMetrics           `json:"tickets_by_assignee"`
	TicketsOverTime    []TimeBucket                `json:"tickets_over_time"`
}

// MetricsService aggregates ticket statistics over a creation-time window.
// Each sub-metric is computed from its own repository pass so a failure in
// one does not poison the inputs of another. Reports are cached in Redis
// when a client is configured; cache failures are never fatal.
type MetricsService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// MetricsDependencies bundles collaborators for the metrics service.
type MetricsDependencies struct {
	TicketRepo   repository.TicketRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
	Cache        *redis.Client
	CacheTTL     time.Duration
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewMetricsService constructs the service.
func NewMetricsService(deps MetricsDependencies) *MetricsService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsService{
		tickets:    deps.TicketRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		logger:     logger,
		now:        now,
	}
}

// Report builds the dashboard metrics for the requested window. Staff only.
func (s *MetricsService) Report(ctx context.Context, actor *domain.User, query MetricsQuery) (*MetricsReport, error) {
	if !authz.AllowedForRole(actor.Role, authz.ActionViewMetrics) {
		return nil, apperrors.NewForbidden("you cannot view metrics")
	}

	endDate := s.now()
	if query.EndDate != nil {
		endDate = *query.EndDate
	}
	// Both defaults anchor on the current time, not on each other.
	startDate := s.now().AddDate(0, -1, 0)
	if query.StartDate != nil {
		startDate = *query.StartDate
	}
	if startDate.After(endDate) {
		return nil, apperrors.NewValidationError("start date must not be after end date", nil)
	}

	timeFormat := query.TimeFormat
	if timeFormat == "" {
		timeFormat = TimeFormatDay
	}
	switch timeFormat {
	case TimeFormatDay, TimeFormatWeek, TimeFormatMonth:
	default:
		return nil, apperrors.NewValidationError("invalid time format", map[string]any{"time_format": timeFormat})
	}

	cacheKey := fmt.Sprintf("metrics:%s:%s:%s",
		startDate.UTC().Format(time.RFC3339), endDate.UTC().Format(time.RFC3339), timeFormat)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	report := &MetricsReport{
		StartDate:  startDate,
		EndDate:    endDate,
		TimeFormat: timeFormat,
	}

	total, err := s.totalTickets(ctx, startDate, endDate)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	report.TotalTickets = total

	statusCounts, err := s.statusCounts(ctx, startDate, endDate)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	report.StatusCounts = statusCounts

	categoryCounts, err := s.categoryCounts(ctx, startDate, endDate)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	report.CategoryCounts = categoryCounts

	avgResolution, err := s.avgResolutionHours(ctx, startDate, endDate)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	report.AvgResolutionHours = avgResolution

	byAssignee, err := s.ticketsByAssignee(ctx, startDate, endDate)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	report.TicketsByAssignee = byAssignee

	overTime, err := s.ticketsOverTime(ctx, startDate, endDate, timeFormat)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	report.TicketsOverTime = overTime

	s.toCache(ctx, cacheKey, report)
	return report, nil
}

func (s *MetricsService) totalTickets(ctx context.Context, from, to time.Time) (int, error) {
	tickets, err := s.tickets.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return len(tickets), nil
}

func (s *MetricsService) statusCounts(ctx context.Context, from, to time.Time) (map[domain.TicketStatus]int, error) {
	tickets, err := s.tickets.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.TicketStatus]int)
	for _, ticket := range tickets {
		counts[ticket.Status]++
	}
	return counts, nil
}

func (s *MetricsService) categoryCounts(ctx context.Context, from, to time.Time) ([]CategoryCount, error) {
	tickets, err := s.tickets.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, ticket := range tickets {
		counts[ticket.CategoryID]++
	}

	names := make(map[string]string, len(counts))
	for categoryID := range counts {
		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				names[categoryID] = "unknown"
				continue
			}
			return nil, err
		}
		names[categoryID] = category.Name
	}

	result := make([]CategoryCount, 0, len(counts))
	for categoryID, count := range counts {
		result = append(result, CategoryCount{
			CategoryID: categoryID,
			Name:       names[categoryID],
			Count:      count,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *MetricsService) avgResolutionHours(ctx context.Context, from, to time.Time) (float64, error) {
	tickets, err := s.tickets.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	var totalHours float64
	var resolved int
	for _, ticket := range tickets {
		if ticket.CompletedAt == nil {
			continue
		}
		totalHours += ticket.CompletedAt.Sub(ticket.CreatedAt).Hours()
		resolved++
	}
	if resolved == 0 {
		return 0, nil
	}
	return totalHours / float64(resolved), nil
}

func (s *MetricsService) ticketsByAssignee(ctx context.Context, from, to time.Time) ([]AssigneeMetrics, error) {
	tickets, err := s.tickets.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	type tally struct {
		total    int
		resolved int
	}
	tallies := make(map[string]*tally)
	for _, ticket := range tickets {
		if ticket.AssigneeID == nil {
			continue
		}
		t, ok := tallies[*ticket.AssigneeID]
		if !ok {
			t = &tally{}
			tallies[*ticket.AssigneeID] = t
		}
		t.total++
		if ticket.Status.IsComplete() {
			t.resolved++
		}
	}

	result := make([]AssigneeMetrics, 0, len(tallies))
	for assigneeID, t := range tallies {
		name := "unknown"
		user, err := s.users.GetByID(ctx, assigneeID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
		} else {
			name = user.Name
		}
		rate := 0.0
		if t.total > 0 {
			rate = float64(t.resolved) / float64(t.total) * 100
		}
		result = append(result, AssigneeMetrics{
			AssigneeID:     assigneeID,
			Name:           name,
			Total:          t.total,
			Resolved:       t.resolved,
			ResolutionRate: rate,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *MetricsService) ticketsOverTime(ctx context.Context, from, to time.Time, timeFormat string) ([]TimeBucket, error) {
	tickets, err := s.tickets.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, ticket := range tickets {
		counts[bucketKey(ticket.CreatedAt, timeFormat)]++
	}

	periods := make([]string, 0, len(counts))
	for period := range counts {
		periods = append(periods, period)
	}
	// Bucket keys are zero padded so lexical order is chronological order.
	sort.Strings(periods)

	result := make([]TimeBucket, 0, len(periods))
	for _, period := range periods {
		result = append(result, TimeBucket{Period: period, Count: counts[period]})
	}
	return result, nil
}

func bucketKey(t time.Time, timeFormat string) string {
	switch timeFormat {
	case TimeFormatWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case TimeFormatMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

func (s *MetricsService) fromCache(ctx context.Context, key string) *MetricsReport {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("metrics cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var report MetricsReport
	if err := json.Unmarshal(raw, &report); err != nil {
		s.logger.Warn("metrics cache decode failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &report
}

func (s *MetricsService) toCache(ctx context.Context, key string, report *MetricsReport) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("metrics cache write failed", zap.String("key", key), zap.Error(err))
	}
}
