package models

// Query selects resources by tag.
// A resource matches when it carries every Include tag and no Exclude tag.
type Query struct {
	Include TagSet
	Exclude TagSet

	// Offset is the zero-based position of the first returned resource
	Offset int

	// Limit caps the number of returned resources; zero means no limit
	Limit int
}

// Matches reports whether a resource with the given tags satisfies the query.
func (q Query) Matches(tags TagSet) bool {
	for _, t := range q.Include.inner {
		if !tags.Contains(t) {
			return false
		}
	}
	for _, t := range q.Exclude.inner {
		if tags.Contains(t) {
			return false
		}
	}
	return true
}

// WithDefaultExcludes adds the default excludes that the query does not
// explicitly include to the exclude set.
func (q Query) WithDefaultExcludes(defaults TagSet) Query {
	extra := defaults.Duplicate()
	extra.Difference(q.Include)
	ex := q.Exclude.Duplicate()
	ex.Union(extra)
	q.Exclude = ex
	return q
}
