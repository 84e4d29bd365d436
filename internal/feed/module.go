package feed

import "go.uber.org/fx"

// Module provides the feed client dependencies
var Module = fx.Module("feed",
	fx.Provide(
		NewClient,
	),
)
