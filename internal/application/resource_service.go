package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ResourceService is the read-only catalog of bookable rooms and vehicles.
// Catalog administration happens out of band; the engine only reads.
type ResourceService struct {
	resources ResourceDirectory
	logger    *slog.Logger
}

// NewResourceService wires the catalog reader.
func NewResourceService(resources ResourceDirectory, logger *slog.Logger) *ResourceService {
	return &ResourceService{
		resources: resources,
		logger:    defaultLogger(logger),
	}
}

// GetResource returns one catalog entry.
func (s *ResourceService) GetResource(ctx context.Context, id string) (resource Resource, err error) {
	if s == nil || s.resources == nil {
		return Resource{}, fmt.Errorf("resource directory not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ResourceService", "GetResource", "resource_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get resource", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if strings.TrimSpace(id) == "" {
		vErr := &ValidationError{}
		vErr.add("resource_id", "resource id is required")
		err = vErr
		return
	}

	resource, err = s.resources.GetResource(ctx, id)
	if err != nil {
		if isNotFoundError(err) {
			err = ErrNotFound
		}
		return
	}
	return
}

// ListResources enumerates the catalog, optionally narrowed to one kind. An
// empty kind lists everything.
func (s *ResourceService) ListResources(ctx context.Context, kind ResourceKind) (resources []Resource, err error) {
	if s == nil || s.resources == nil {
		return nil, fmt.Errorf("resource directory not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ResourceService", "ListResources", "kind", string(kind))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if kind != "" && !kind.Valid() {
		vErr := &ValidationError{}
		vErr.add("kind", "kind must be room or vehicle")
		err = vErr
		return
	}

	resources, err = s.resources.ListResources(ctx, kind)
	return
}
