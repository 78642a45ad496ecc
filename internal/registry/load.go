package registry

import (
	"context"

	"github.com/vk/persistunits/internal/ctxlog"
)

// Load creates a registry populated by mods.
func Load(ctx context.Context, mods ...Module) *Registry {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading modules...", "count", len(mods))

	reg := New()
	for _, mod := range mods {
		mod.Register(reg)
	}

	if len(reg.providers) == 0 {
		logger.Warn("No providers registered by any module.")
	}
	logger.Info("Registry loaded successfully.", "providers", len(reg.providers), "classes", len(reg.catalog.Names()))
	return reg
}
