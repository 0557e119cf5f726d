package adapter

import (
	"context"

	"github.com/c360/adapterkit/pipeline"
)

// Hard per-feature maximums for buffered delivery. Streamed delivery is not
// subject to these; it forwards incrementally under bounded memory instead.
const (
	MaxTagSearchResults = 500
	MaxSnapshotValues   = 5000
	MaxRawSamples       = 20000
	MaxAnnotations      = 1000
	MaxEventMessages    = 1000
	DefaultMaxWriteSize = 5000
)

// TagSearcher is the handle for the tags.search feature.
type TagSearcher interface {
	SearchTags(ctx context.Context, req *SearchTagsRequest) (*pipeline.Stream[TagDefinition], error)
}

// SnapshotReader is the handle for the tags.read.snapshot feature.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, req *ReadSnapshotRequest) (*pipeline.Stream[TagValue], error)
}

// RawReader is the handle for the tags.read.raw feature.
type RawReader interface {
	ReadRaw(ctx context.Context, req *ReadRawRequest) (*pipeline.Stream[TagValue], error)
}

// AnnotationReader is the handle for the tags.read.annotations feature.
type AnnotationReader interface {
	ReadAnnotations(ctx context.Context, req *ReadAnnotationsRequest) (*pipeline.Stream[Annotation], error)
}

// EventReader is the handle for the events.read feature.
type EventReader interface {
	ReadEvents(ctx context.Context, req *ReadEventsRequest) (*pipeline.Stream[EventMessage], error)
}

// AssetBrowser is the handle for the assets.browse feature.
type AssetBrowser interface {
	BrowseAssets(ctx context.Context, req *BrowseAssetsRequest) (*pipeline.Stream[AssetNode], error)
}

// ValueWriter is the handle for the tags.write feature. The adapter consumes
// the bounded item channel and emits one acknowledgement per accepted item;
// the pipeline owns the decoupling between caller and adapter.
type ValueWriter interface {
	WriteValues(ctx context.Context, values <-chan WriteValueItem) (*pipeline.Stream[WriteResult], error)

	// MaxWriteSize returns the bounded-channel capacity for one write
	// call. Items beyond it are dropped and marked incomplete.
	MaxWriteSize() int
}

// BufferLimit returns the buffered-mode hard maximum for a standard feature.
func BufferLimit(id FeatureID) int {
	switch id {
	case FeatureTagSearch:
		return MaxTagSearchResults
	case FeatureReadSnapshot:
		return MaxSnapshotValues
	case FeatureReadRaw:
		return MaxRawSamples
	case FeatureReadAnnotations:
		return MaxAnnotations
	case FeatureReadEvents:
		return MaxEventMessages
	default:
		return MaxTagSearchResults
	}
}
