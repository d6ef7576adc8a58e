package app

import (
	"github.com/vk/rosettago/internal/handlers"
	"github.com/vk/rosettago/modules/adapters"
	"github.com/vk/rosettago/modules/combinator"
	"github.com/vk/rosettago/modules/signature"
	"github.com/vk/rosettago/modules/spectral"
)

// coreModules is the definitive list of operator modules compiled into the
// binary.
var coreModules = []handlers.Module{
	&spectral.Module{},
	&signature.Module{},
	&combinator.Module{},
	&adapters.Module{},
}
