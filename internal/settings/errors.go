package settings

import "errors"

var (
	// ErrCorruptSettings is returned by Load when the stored value cannot be
	// decoded into valid settings. The store has been reset to defaults.
	ErrCorruptSettings = errors.New("stored settings are corrupt")

	// ErrInvalidTagView is returned when a tag view outside the recognized modes is set.
	ErrInvalidTagView = errors.New("invalid tag view")
)
