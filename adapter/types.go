package adapter

import (
	"time"

	"github.com/c360/adapterkit/variant"
)

// Quality grades a tag value the way industrial historians do.
type Quality string

// Tag value qualities.
const (
	QualityGood      Quality = "good"
	QualityBad       Quality = "bad"
	QualityUncertain Quality = "uncertain"
)

// TagDefinition describes one tag (a named time-series point) exposed by an
// adapter.
type TagDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Units       string   `json:"units,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// TagValue is one sample for one tag. The value itself crosses the boundary
// as a Variant so receivers need no compile-time knowledge of its type.
type TagValue struct {
	TagID     string          `json:"tag_id"`
	Timestamp time.Time       `json:"timestamp"`
	Value     variant.Variant `json:"value"`
	Quality   Quality         `json:"quality"`
	Notes     string          `json:"notes,omitempty"`
}

// Annotation is a human-entered note attached to a tag at a point in time.
type Annotation struct {
	ID          string    `json:"id"`
	TagID       string    `json:"tag_id"`
	Timestamp   time.Time `json:"timestamp"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
}

// EventMessage is one entry from an adapter's event source.
type EventMessage struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Priority  string          `json:"priority,omitempty"`
	Category  string          `json:"category,omitempty"`
	Message   string          `json:"message"`
	Fields    variant.Variant `json:"fields,omitempty"`
}

// AssetNode is one node of an adapter's asset hierarchy.
type AssetNode struct {
	ID          string `json:"id"`
	ParentID    string `json:"parent_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	HasChildren bool   `json:"has_children"`
}

// SearchTagsRequest filters the tag search feature.
type SearchTagsRequest struct {
	Name     string   `json:"name,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
	Page     int      `json:"page,omitempty"`
}

// ReadSnapshotRequest names the tags whose current values are wanted.
type ReadSnapshotRequest struct {
	Tags []string `json:"tags"`
}

// ReadRawRequest bounds a raw history read.
type ReadRawRequest struct {
	Tags  []string  `json:"tags"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ReadAnnotationsRequest bounds an annotation read.
type ReadAnnotationsRequest struct {
	Tags  []string  `json:"tags"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ReadEventsRequest bounds an event read.
type ReadEventsRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BrowseAssetsRequest selects one level of the asset hierarchy. An empty
// ParentID selects the root nodes.
type BrowseAssetsRequest struct {
	ParentID string `json:"parent_id,omitempty"`
}

// WriteValueItem is one value submitted on the write path.
type WriteValueItem struct {
	TagID     string          `json:"tag_id"`
	Timestamp time.Time       `json:"timestamp"`
	Value     variant.Variant `json:"value"`
}
