// Package models provides data structures and operations for the ftag application.
// This file contains the descriptor of a stored file together with its tags.
package models

import (
	"time"

	"github.com/blubywaff/ftag/internal/constants"
)

// TimeFormat is the textual layout of Resource.CreatedAt.
const TimeFormat = time.RFC3339

// Resource describes a stored file. It carries no behavior of its own.
type Resource struct {
	// Id is the opaque identifier of the resource
	Id string `json:"Id" db:"resource_id"`

	// Mimetype is the detected media type of the file contents
	Mimetype string `json:"Mimetype" db:"mimetype"`

	// CreatedAt is the creation timestamp as RFC 3339 text in UTC
	CreatedAt string `json:"CreatedAt" db:"created_at"`

	// Tags holds the tag labels attached to the resource
	Tags []string `json:"Tags"`
}

// DefaultResource returns the zero descriptor: empty strings and an empty,
// non-nil tag collection.
func DefaultResource() Resource {
	return Resource{
		Id:        "",
		Mimetype:  "",
		CreatedAt: "",
		Tags:      []string{},
	}
}

// NewResource creates a descriptor for a freshly stored file.
//
// Parameters:
//   - id: The identifier of the resource
//   - mimetype: The detected media type
//   - createdAt: The creation time, stored in UTC
//   - tags: The tags attached to the resource
//
// Returns:
//   - A Resource whose Tags are the sorted contents of tags
func NewResource(id, mimetype string, createdAt time.Time, tags TagSet) Resource {
	return Resource{
		Id:        id,
		Mimetype:  mimetype,
		CreatedAt: FormatTime(createdAt),
		Tags:      tags.Slice(),
	}
}

// TableName returns the database table name for the Resource model.
func (r *Resource) TableName() string {
	return constants.TableResources
}

// TagSet returns the resource's tags as a set.
func (r *Resource) TagSet() TagSet {
	var ts TagSet
	for _, t := range r.Tags {
		ts.add(t)
	}
	return ts
}

// Created parses CreatedAt. The zero time is returned for an empty or malformed value.
func (r *Resource) Created() time.Time {
	t, err := time.Parse(TimeFormat, r.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatTime renders t in the layout used by Resource.CreatedAt.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ChangeTagsRequest represents a request to add and remove tags on a resource.
type ChangeTagsRequest struct {
	// AddTags are attached to the resource
	AddTags []string `json:"addTags" validate:"omitempty,dive,tag"`

	// DelTags are detached from the resource
	DelTags []string `json:"delTags" validate:"omitempty,dive,tag"`
}

// QueryResult is a single query hit together with the result list size.
type QueryResult struct {
	Resource Resource `json:"resource"`
	Number   int      `json:"number"`
	Total    int      `json:"total"`
}
