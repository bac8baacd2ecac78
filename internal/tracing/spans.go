package tracing

// Span attribute keys for substitution tracing.
// These constants define the semantic conventions for span attributes
// across the engine.
const (
	// Scope attributes
	AttrScopeID = "scope.id"
	AttrName    = "substitute.name"
	AttrRoot    = "substitute.root"
	AttrCached  = "closure.cached"

	// Provider attributes
	AttrProviderName = "provider.name"

	// Error attributes
	AttrErrorMessage = "error.message"
	AttrErrorType    = "error.type"
)

// Span names for consistent naming.
const (
	SpanSubstitute = "engine.substitute"
	SpanDiscovery  = "engine.discovery"
	SpanRestore    = "engine.restore"
)

// Event names for span events.
const (
	EventGuardAcquired   = "guard.acquired"
	EventGuardReleased   = "guard.released"
	EventSnapshotTaken   = "snapshot.taken"
	EventClosureRecorded = "closure.recorded"
	EventRegistryEvicted = "registry.evicted"
)
