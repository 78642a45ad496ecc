package app

import (
	"github.com/vk/persistunits/internal/registry"
	"github.com/vk/persistunits/modules/inmemory"
	"github.com/vk/persistunits/modules/tracing"
)

// coreModules is the definitive list of all provider modules compiled into
// the persistunits binary.
var coreModules = []registry.Module{
	&inmemory.Module{},
	&tracing.Module{},
}
