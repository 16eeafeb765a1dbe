package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/core/port"
	"github.com/ameed2001/buildtrack/internal/infra/telemetry"
)

// CostReportService handles the append-only cost reports linked to projects.
type CostReportService struct {
	store   port.SnapshotStore
	audit   *AuditService
	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewCostReportService constructs a CostReportService.
func NewCostReportService(store port.SnapshotStore, audit *AuditService, log *zap.Logger, metrics *telemetry.Metrics) *CostReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CostReportService{
		store:   store,
		audit:   audit,
		logger:  log,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (s *CostReportService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Add appends a report with a generated id and creation timestamp. The total
// is stored as supplied, zero or negative included; range validation belongs
// to the caller.
func (s *CostReportService) Add(ctx context.Context, report domain.CostReport) (added *domain.CostReport, err error) {
	defer func() { s.metrics.Operation("costreport.add", err) }()

	if report.Name == "" {
		return nil, fmt.Errorf("report name is required")
	}
	if report.ProjectID <= 0 {
		return nil, fmt.Errorf("project id is required")
	}

	report.ID = uuid.NewString()
	report.CreatedAt = s.now().UTC()
	if report.Items == nil {
		report.Items = []domain.CostLineItem{}
	}

	err = mutateStore(ctx, s.store, s.logger, func(snap *domain.Snapshot) error {
		snap.CostReports = append(snap.CostReports, report)
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "costreport.add", domain.LogLevelWarning,
			fmt.Sprintf("cost report rejected for project %d: %v", report.ProjectID, err), report.EngineerName)
		return nil, err
	}

	s.audit.record(ctx, "costreport.add", domain.LogLevelSuccess,
		fmt.Sprintf("cost report %q added to project %d", report.Name, report.ProjectID), report.EngineerName)

	return &report, nil
}

// ListForProject returns the project's reports, newest first.
func (s *CostReportService) ListForProject(ctx context.Context, projectID int) ([]domain.CostReport, error) {
	snap, err := loadStore(ctx, s.store, s.logger, false)
	if err != nil {
		return nil, err
	}

	var reports []domain.CostReport
	for i := range snap.CostReports {
		if snap.CostReports[i].ProjectID == projectID {
			reports = append(reports, snap.CostReports[i])
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	return reports, nil
}
