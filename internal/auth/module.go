package auth

import "go.uber.org/fx"

// Module provides the authorization coordinator dependencies
var Module = fx.Module("auth",
	fx.Provide(
		NewCoordinator,
		NewRegistry,
	),
)
