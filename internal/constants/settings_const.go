package constants

// Settings storage
const (
	// SettingsStorageKey is the local storage key holding the serialized settings.
	SettingsStorageKey = "ftag_settings"

	// LocalNamespace is the storage namespace used by the local command line client.
	LocalNamespace = "local"
)

// Tag view modes
const (
	TagViewHide = "hide"
	TagViewShow = "show"
	TagViewEdit = "edit"
)

// Tag rules
const (
	// MinTagLength is the shortest accepted tag.
	MinTagLength = 3

	// TagSeparator separates tags in free-text tag lists.
	TagSeparator = ","
)
