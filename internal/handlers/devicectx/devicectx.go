package devicectx

import (
	"context"

	"github.com/nkiryanov/farepass/internal/models"
)

type ctxKey string

const deviceKey ctxKey = "device"

// Create a new context with the device
func New(ctx context.Context, d models.Device) context.Context {
	return context.WithValue(ctx, deviceKey, d)
}

// Extract the device from the context
func FromContext(ctx context.Context) (models.Device, bool) {
	d, ok := ctx.Value(deviceKey).(models.Device)
	return d, ok
}
