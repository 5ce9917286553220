// Package models provides data structures and operations for the ftag application.
// This file contains the user display preferences that control how tags are
// presented and which tags are filtered out of queries by default.
package models

import (
	"github.com/blubywaff/ftag/internal/constants"
)

// TagView is the tag-visibility mode of the user interface.
type TagView string

// Recognized tag view modes.
const (
	// TagViewHide hides tags entirely
	TagViewHide TagView = constants.TagViewHide

	// TagViewShow shows tags read-only
	TagViewShow TagView = constants.TagViewShow

	// TagViewEdit shows tags with editing controls
	TagViewEdit TagView = constants.TagViewEdit
)

// TagViewOptions lists every tag view mode in display order.
var TagViewOptions = []TagView{TagViewHide, TagViewShow, TagViewEdit}

// Valid reports whether the mode is one of the recognized tag view modes.
func (v TagView) Valid() bool {
	switch v {
	case TagViewHide, TagViewShow, TagViewEdit:
		return true
	}
	return false
}

// String returns the wire form of the mode.
func (v TagView) String() string {
	return string(v)
}

// Settings represents the display preferences of a single client.
// It is persisted as a JSON document under one key of the client's local storage.
type Settings struct {
	// DefaultExcludes is a comma separated list of tags excluded from queries
	// unless the query explicitly includes them
	DefaultExcludes string `json:"defaultExcludes"`

	// DefaultTagView is the tag-visibility mode, always one of TagViewOptions
	DefaultTagView TagView `json:"defaultTagView"`
}

// DefaultSettings returns the settings a client starts with.
//
// Returns:
//   - A Settings value with no default excludes and the "show" tag view
//
// Each call returns an independent value, so callers may mutate the result freely.
func DefaultSettings() Settings {
	return Settings{
		DefaultExcludes: "",
		DefaultTagView:  TagViewShow,
	}
}

// ShowTags reports whether tags are displayed at all.
func (s Settings) ShowTags() bool {
	return s.DefaultTagView != TagViewHide
}

// ShowTagEdit reports whether tag editing controls are displayed.
func (s Settings) ShowTagEdit() bool {
	return s.DefaultTagView == TagViewEdit
}

// Valid reports whether the settings satisfy the tag view invariant.
func (s Settings) Valid() bool {
	return s.DefaultTagView.Valid()
}

// ExcludeTags parses DefaultExcludes into a tag set, silently dropping invalid entries.
func (s Settings) ExcludeTags() TagSet {
	var ts TagSet
	ts.FillFromString(s.DefaultExcludes)
	return ts
}

// SettingsUpdate represents the data that can be updated for client settings.
// Nil fields are left unchanged, allowing partial updates.
type SettingsUpdate struct {
	// DefaultExcludes replaces the comma separated default exclusion list
	DefaultExcludes *string `json:"defaultExcludes" validate:"omitempty,max=4096"`

	// DefaultTagView replaces the tag-visibility mode
	DefaultTagView *TagView `json:"defaultTagView" validate:"omitempty,tagview"`
}

// Apply updates the settings with values from the update request.
//
// Parameters:
//   - update: A SettingsUpdate containing the fields to update
//
// Returns:
//   - The updated settings; the receiver is not modified
func (s Settings) Apply(update *SettingsUpdate) Settings {
	if update == nil {
		return s
	}
	if update.DefaultExcludes != nil {
		s.DefaultExcludes = *update.DefaultExcludes
	}
	if update.DefaultTagView != nil {
		s.DefaultTagView = *update.DefaultTagView
	}
	return s
}

// SettingsView is the API representation of a client's settings together
// with the flags derived from them.
type SettingsView struct {
	Settings

	// ShowTags mirrors Settings.ShowTags
	ShowTags bool `json:"showTags"`

	// ShowTagEdit mirrors Settings.ShowTagEdit
	ShowTagEdit bool `json:"showTagEdit"`

	// Persisted is false when the settings were produced outside a client
	// execution context and therefore neither loaded nor saved
	Persisted bool `json:"persisted"`
}

// NewSettingsView builds the API representation of the given settings.
func NewSettingsView(s Settings, persisted bool) *SettingsView {
	return &SettingsView{
		Settings:    s,
		ShowTags:    s.ShowTags(),
		ShowTagEdit: s.ShowTagEdit(),
		Persisted:   persisted,
	}
}

// SettingsOptions describes the accepted values of each setting.
type SettingsOptions struct {
	TagView []TagView `json:"tagView"`
}

// NewSettingsOptions returns the accepted values of each setting.
func NewSettingsOptions() *SettingsOptions {
	opts := make([]TagView, len(TagViewOptions))
	copy(opts, TagViewOptions)
	return &SettingsOptions{TagView: opts}
}
