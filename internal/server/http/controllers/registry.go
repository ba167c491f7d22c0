package controllers

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/rzbill/eventual/internal/eventlog"
)

// Runtime is the storage surface the controllers read from. It is satisfied
// by *runtime.Runtime.
type Runtime interface {
	CheckHealth(ctx context.Context) error
	Names() ([]string, error)
	Has(name string) bool
	Stream(name string) (eventlog.Stream, error)
}

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	streams *StreamsController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt Runtime) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		streams: NewStreamsController(rt),
	}
}

// RegisterAllRoutes registers all controller routes with the given router.
//
// The admin API is read-only; events are written through the wire protocol.
func (r *ControllerRegistry) RegisterAllRoutes(router chi.Router) {
	r.general.RegisterRoutes(router)
	r.streams.RegisterRoutes(router)
}
