package controllers

import (
	"github.com/ManuelReschke/ServicePortal/internal/pkg/portal"
)

// Controller serves the JSON portal API on top of the shared services.
type Controller struct {
	svc *portal.Services
}

func NewController(svc *portal.Services) *Controller {
	return &Controller{svc: svc}
}

var controller *Controller

// Initialize installs the global controller used by the adapter functions.
func Initialize(svc *portal.Services) {
	controller = NewController(svc)
}

func getController() *Controller {
	if controller == nil {
		panic("controllers not initialized. Call Initialize first.")
	}
	return controller
}
