package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/secrets"
)

// ResourceService manages the meeting resource catalog: pool membership,
// maintenance state, and sealed credentials. All mutations are admin-only.
type ResourceService struct {
	pool        ResourceStore
	sealer      *secrets.Sealer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs the catalog service. A nil sealer stores
// credentials as provided, for tests that do not exercise sealing.
func NewResourceService(pool ResourceStore, sealer *secrets.Sealer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{pool: pool, sealer: sealer, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateResource validates input and adds a resource to the pool.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (view ResourceView, err error) {
	if s == nil {
		return ResourceView{}, fmt.Errorf("ResourceService is nil")
	}

	logger := s.loggerWith(ctx, "CreateResource", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", view.ID).InfoContext(ctx, "resource created")
	}()

	if !params.Principal.IsAdmin {
		return ResourceView{}, ErrUnauthorized
	}
	if vErr := validateResourceInput(params.Input); vErr.HasErrors() {
		return ResourceView{}, vErr
	}

	credentials, err := s.seal(params.Input.Credentials)
	if err != nil {
		return ResourceView{}, err
	}

	createdAt := s.now()
	resource := resources.MeetingResource{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(params.Input.Name),
		Platform:    strings.TrimSpace(params.Input.Platform),
		Credentials: credentials,
		Status:      resources.StatusAvailable,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := s.pool.CreateResource(ctx, resource); err != nil {
		return ResourceView{}, mapRepoError(err)
	}
	return s.view(resource, params.Principal), nil
}

// UpdateResource renames or re-credentials an existing resource.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (view ResourceView, err error) {
	if s == nil {
		return ResourceView{}, fmt.Errorf("ResourceService is nil")
	}

	logger := s.loggerWith(ctx, "UpdateResource", "resource_id", params.ResourceID, "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource updated")
	}()

	if !params.Principal.IsAdmin {
		return ResourceView{}, ErrUnauthorized
	}
	if vErr := validateResourceInput(params.Input); vErr.HasErrors() {
		return ResourceView{}, vErr
	}

	resource, err := s.pool.GetResource(ctx, params.ResourceID)
	if err != nil {
		return ResourceView{}, mapRepoError(err)
	}

	resource.Name = strings.TrimSpace(params.Input.Name)
	resource.Platform = strings.TrimSpace(params.Input.Platform)
	if params.Input.Credentials != "" {
		credentials, err := s.seal(params.Input.Credentials)
		if err != nil {
			return ResourceView{}, err
		}
		resource.Credentials = credentials
	}
	resource.UpdatedAt = s.now()

	if err := s.pool.UpdateResource(ctx, resource); err != nil {
		return ResourceView{}, mapRepoError(err)
	}
	return s.view(resource, params.Principal), nil
}

// SetMaintenance flips a resource in or out of the maintenance state. A
// resource with a live reservation cannot enter maintenance.
func (s *ResourceService) SetMaintenance(ctx context.Context, params SetMaintenanceParams) (view ResourceView, err error) {
	if s == nil {
		return ResourceView{}, fmt.Errorf("ResourceService is nil")
	}

	logger := s.loggerWith(ctx, "SetMaintenance", "resource_id", params.ResourceID, "maintenance", params.Maintenance)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set maintenance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "maintenance state changed")
	}()

	if !params.Principal.IsAdmin {
		return ResourceView{}, ErrUnauthorized
	}

	resource, err := s.pool.GetResource(ctx, params.ResourceID)
	if err != nil {
		return ResourceView{}, mapRepoError(err)
	}

	if params.Maintenance {
		if resource.Status == resources.StatusReserved &&
			resource.CurrentReservation != nil &&
			!resource.CurrentReservation.End.Before(s.now()) {
			vErr := &ValidationError{}
			vErr.add("status", "resource has a live reservation")
			return ResourceView{}, vErr
		}
		resource.Status = resources.StatusMaintenance
		resource.CurrentReservation = nil
	} else if resource.Status == resources.StatusMaintenance {
		resource.Status = resources.StatusAvailable
	}
	resource.UpdatedAt = s.now()

	if err := s.pool.UpdateResource(ctx, resource); err != nil {
		return ResourceView{}, mapRepoError(err)
	}
	return s.view(resource, params.Principal), nil
}

// ListResources returns the pool in its contractual order. Credentials are
// unsealed only for administrators.
func (s *ResourceService) ListResources(ctx context.Context, principal Principal) ([]ResourceView, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}

	pool, err := s.pool.ListResources(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	views := make([]ResourceView, 0, len(pool))
	for _, resource := range pool {
		views = append(views, s.view(resource, principal))
	}
	return views, nil
}

func (s *ResourceService) seal(credentials string) (string, error) {
	if credentials == "" || s.sealer == nil {
		return credentials, nil
	}
	sealed, err := s.sealer.Seal(credentials)
	if err != nil {
		return "", fmt.Errorf("seal credentials: %w", err)
	}
	return sealed, nil
}

func (s *ResourceService) view(resource resources.MeetingResource, principal Principal) ResourceView {
	view := ResourceView{
		ID:                 resource.ID,
		Name:               resource.Name,
		Platform:           resource.Platform,
		Status:             resource.Status,
		CurrentReservation: resource.CurrentReservation,
		UpdatedAt:          resource.UpdatedAt,
	}
	if principal.IsAdmin && resource.Credentials != "" {
		if s.sealer == nil {
			view.Credentials = resource.Credentials
		} else if opened, err := s.sealer.Open(resource.Credentials); err == nil {
			view.Credentials = opened
		}
	}
	return view
}

func validateResourceInput(input ResourceInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Platform) == "" {
		vErr.add("platform", "platform is required")
	}
	return vErr
}
