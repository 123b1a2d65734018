package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/workplace-reservations/internal/application"
)

type resourceService interface {
	GetResource(ctx context.Context, id string) (application.Resource, error)
	ListResources(ctx context.Context, kind application.ResourceKind) ([]application.Resource, error)
}

type ResourceHandler struct {
	service   resourceService
	responder responder
}

func NewResourceHandler(service resourceService, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{service: service, responder: newResponder(logger)}
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	kind := application.ResourceKind(strings.TrimSpace(r.URL.Query().Get("kind")))

	resources, err := h.service.ListResources(r.Context(), kind)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: toResourceDTOs(resources)})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	resource, err := h.service.GetResource(r.Context(), resourceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

type resourceResponse struct {
	Resource resourceDTO `json:"resource"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

type resourceDTO struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	Name         string  `json:"name"`
	Location     *string `json:"location,omitempty"`
	Capacity     int     `json:"capacity,omitempty"`
	Facilities   *string `json:"facilities,omitempty"`
	PlateNumber  *string `json:"plate_number,omitempty"`
	FuelType     *string `json:"fuel_type,omitempty"`
	Transmission *string `json:"transmission,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toResourceDTO(resource application.Resource) resourceDTO {
	return resourceDTO{
		ID:           resource.ID,
		Kind:         string(resource.Kind),
		Name:         resource.Name,
		Location:     resource.Location,
		Capacity:     resource.Capacity,
		Facilities:   resource.Facilities,
		PlateNumber:  resource.PlateNumber,
		FuelType:     resource.FuelType,
		Transmission: resource.Transmission,
		CreatedAt:    resource.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    resource.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toResourceDTOs(resources []application.Resource) []resourceDTO {
	if len(resources) == 0 {
		return nil
	}
	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	return out
}
