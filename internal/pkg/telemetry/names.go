package telemetry

// Span names.
const (
	SpanRouteLoad   = "route.load"
	SpanRouteFetch  = "route.fetch"
	SpanRouteDecode = "route.decode"
	SpanRouteQuery  = "route.query"
)

// Span attribute keys.
const (
	AttrRouteLocation = "route.location"
	AttrRouteSamples  = "route.samples"
	AttrCacheHit      = "cache.hit"
)
