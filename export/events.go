package export

// Event names dispatched over the bus. Changed/removed payloads are
// []string of scope ids; preference payloads are the new trigger mode
// string; idle payloads are idle.State values.
const (
	EventCollectionsChanged = "collections.changed"
	EventCollectionsRemoved = "collections.removed"
	EventLibrariesChanged   = "libraries.changed"
	EventLibrariesRemoved   = "libraries.removed"
	EventPreferencesChanged = "preferences.changed"
	EventIdleState          = "idle.state"
)
