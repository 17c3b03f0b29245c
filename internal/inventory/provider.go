// Package inventory supplies the device list a correlation run works on.
package inventory

import (
	"context"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// Provider produces the devices to correlate
type Provider interface {
	Devices(ctx context.Context) ([]models.Device, error)
}

// Static is a Provider over a fixed device list
type Static []models.Device

// Devices returns a copy of the list
func (s Static) Devices(context.Context) ([]models.Device, error) {
	return append([]models.Device{}, s...), nil
}
