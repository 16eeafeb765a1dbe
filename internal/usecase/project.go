package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/core/port"
	"github.com/ameed2001/buildtrack/internal/infra/telemetry"
)

// ProjectService handles project creation, role-scoped listing, update, and
// hard deletion.
type ProjectService struct {
	store   port.SnapshotStore
	audit   *AuditService
	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewProjectService constructs a ProjectService.
func NewProjectService(store port.SnapshotStore, audit *AuditService, log *zap.Logger, metrics *telemetry.Metrics) *ProjectService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectService{
		store:   store,
		audit:   audit,
		logger:  log,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (s *ProjectService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// CreateProjectInput captures the payload for project creation. Unset
// optional fields receive defaults: status PLANNED, dates now, child
// collections empty.
type CreateProjectInput struct {
	Name        string
	Engineer    string
	Client      string
	Status      domain.ProjectStatus
	StartDate   time.Time
	EndDate     time.Time
	Description string
	Location    string
	Budget      float64
	Progress    int
	Summary     string
	OwnerEmail  string
	Photos      []domain.Photo
	Tasks       []domain.TimelineTask
	Comments    []domain.Comment
}

// Create assigns the next numeric id (max existing + 1) and persists the
// project.
func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (proj *domain.Project, err error) {
	defer func() { s.metrics.Operation("project.create", err) }()

	if input.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	now := s.now().UTC()
	project := domain.Project{
		Name:        input.Name,
		Engineer:    input.Engineer,
		Client:      input.Client,
		Status:      input.Status,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Description: input.Description,
		Location:    input.Location,
		Budget:      input.Budget,
		Progress:    input.Progress,
		Summary:     input.Summary,
		OwnerEmail:  input.OwnerEmail,
		Photos:      input.Photos,
		Tasks:       input.Tasks,
		Comments:    input.Comments,
		CreatedAt:   now,
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusPlanned
	}
	if project.StartDate.IsZero() {
		project.StartDate = now
	}
	if project.EndDate.IsZero() {
		project.EndDate = now
	}
	if project.Photos == nil {
		project.Photos = []domain.Photo{}
	}
	if project.Tasks == nil {
		project.Tasks = []domain.TimelineTask{}
	}
	if project.Comments == nil {
		project.Comments = []domain.Comment{}
	}

	err = mutateStore(ctx, s.store, s.logger, func(snap *domain.Snapshot) error {
		maxID := 0
		for i := range snap.Projects {
			if snap.Projects[i].ID > maxID {
				maxID = snap.Projects[i].ID
			}
		}
		project.ID = maxID + 1
		snap.Projects = append(snap.Projects, project)
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "project.create", domain.LogLevelWarning,
			fmt.Sprintf("project creation rejected: %v", err), "")
		return nil, err
	}

	s.audit.record(ctx, "project.create", domain.LogLevelSuccess,
		fmt.Sprintf("project %q created with id %d", project.Name, project.ID), project.Engineer)

	return &project, nil
}

// ListVisible returns the projects the requester may see, newest first.
// ADMIN sees everything; OWNER matches on linked-owner email; ENGINEER
// matches on the engineer display name. Any other role sees nothing.
func (s *ProjectService) ListVisible(ctx context.Context, requesterID string) ([]domain.Project, error) {
	snap, err := loadStore(ctx, s.store, s.logger, false)
	if err != nil {
		return nil, err
	}

	requester := findByID(snap, requesterID)
	if requester == nil {
		return nil, ErrNotFound
	}

	var visible []domain.Project
	for i := range snap.Projects {
		p := snap.Projects[i]
		switch requester.Role {
		case domain.RoleAdmin:
			visible = append(visible, p)
		case domain.RoleOwner:
			if p.OwnerEmail != "" && p.OwnerEmail == requester.Email {
				visible = append(visible, p)
			}
		case domain.RoleEngineer:
			// Name-based join inherited from the legacy data model; a rename
			// on either side silently breaks visibility.
			if p.Engineer != "" && p.Engineer == requester.Name {
				visible = append(visible, p)
			}
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})

	return visible, nil
}

// UpdateProjectInput carries a partial project update. Nil fields are left
// untouched; non-nil child collections replace the stored ones wholesale.
type UpdateProjectInput struct {
	Name        *string
	Engineer    *string
	Client      *string
	Status      *domain.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
	Description *string
	Location    *string
	Budget      *float64
	Progress    *int
	Summary     *string
	OwnerEmail  *string
	Photos      *[]domain.Photo
	Tasks       *[]domain.TimelineTask
	Comments    *[]domain.Comment
}

// Update shallow-merges the input onto the stored project. When progress
// moves without an explicit status, the status follows the lifecycle:
// first progress above zero marks IN_PROGRESS, progress 100 marks COMPLETED.
func (s *ProjectService) Update(ctx context.Context, id int, input UpdateProjectInput) (proj *domain.Project, err error) {
	defer func() { s.metrics.Operation("project.update", err) }()

	var updated domain.Project
	err = mutateStore(ctx, s.store, s.logger, func(snap *domain.Snapshot) error {
		var project *domain.Project
		for i := range snap.Projects {
			if snap.Projects[i].ID == id {
				project = &snap.Projects[i]
				break
			}
		}
		if project == nil {
			return ErrNotFound
		}

		if input.Name != nil {
			project.Name = *input.Name
		}
		if input.Engineer != nil {
			project.Engineer = *input.Engineer
		}
		if input.Client != nil {
			project.Client = *input.Client
		}
		if input.StartDate != nil {
			project.StartDate = *input.StartDate
		}
		if input.EndDate != nil {
			project.EndDate = *input.EndDate
		}
		if input.Description != nil {
			project.Description = *input.Description
		}
		if input.Location != nil {
			project.Location = *input.Location
		}
		if input.Budget != nil {
			project.Budget = *input.Budget
		}
		if input.Summary != nil {
			project.Summary = *input.Summary
		}
		if input.OwnerEmail != nil {
			project.OwnerEmail = *input.OwnerEmail
		}
		if input.Photos != nil {
			project.Photos = append([]domain.Photo{}, (*input.Photos)...)
		}
		if input.Tasks != nil {
			project.Tasks = append([]domain.TimelineTask{}, (*input.Tasks)...)
		}
		if input.Comments != nil {
			project.Comments = append([]domain.Comment{}, (*input.Comments)...)
		}

		if input.Progress != nil {
			project.Progress = *input.Progress
			if input.Status == nil {
				switch {
				case project.Progress >= 100:
					project.Status = domain.ProjectStatusCompleted
				case project.Progress > 0 && project.Status == domain.ProjectStatusPlanned:
					project.Status = domain.ProjectStatusInProgress
				}
			}
		}
		if input.Status != nil {
			project.Status = *input.Status
		}

		updated = *project
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "project.update", domain.LogLevelWarning,
			fmt.Sprintf("project update rejected for id %d: %v", id, err), "")
		return nil, err
	}

	s.audit.record(ctx, "project.update", domain.LogLevelInfo,
		fmt.Sprintf("project %d updated", id), "")

	return &updated, nil
}

// Delete removes the project from the collection outright. Unlike accounts,
// projects carry no retention window.
func (s *ProjectService) Delete(ctx context.Context, id int) (err error) {
	defer func() { s.metrics.Operation("project.delete", err) }()

	var name string
	err = mutateStore(ctx, s.store, s.logger, func(snap *domain.Snapshot) error {
		for i := range snap.Projects {
			if snap.Projects[i].ID == id {
				name = snap.Projects[i].Name
				snap.Projects = append(snap.Projects[:i], snap.Projects[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
	if err != nil {
		s.audit.record(ctx, "project.delete", domain.LogLevelWarning,
			fmt.Sprintf("project delete rejected for id %d: %v", id, err), "")
		return err
	}

	s.audit.record(ctx, "project.delete", domain.LogLevelWarning,
		fmt.Sprintf("project %d (%q) permanently deleted", id, name), "")

	return nil
}
