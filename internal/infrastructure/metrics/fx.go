package metrics

import "go.uber.org/fx"

// Module shares the process-wide collectors with every component that records link,
// auth and HTTP activity
var Module = fx.Module("metrics", fx.Provide(GetDefaultMetrics))
