package msgdriver

import (
	"context"
	"sort"
)

// Metadata is a key-value store for additional information about a request,
// such as its id and the driver handling it.
type Metadata map[string]any

const (
	// MetadataRequestID is the key of the request id.
	MetadataRequestID = "request_id"
	// MetadataDriver is the key of the driver's key/type locator.
	MetadataDriver = "driver"
)

// MetadataFromContext extracts metadata from a context.
// Returns nil if no metadata is present.
func MetadataFromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return nil
	}
	if metadata, ok := ctx.Value(metadataKey).(Metadata); ok {
		return metadata
	}
	return nil
}

// ContextWithMetadata returns a copy of ctx carrying metadata merged over
// any metadata already present.
func ContextWithMetadata(ctx context.Context, metadata Metadata) context.Context {
	parent := MetadataFromContext(ctx)
	merged := make(Metadata, len(parent)+len(metadata))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	return context.WithValue(ctx, metadataKey, merged)
}

// Args returns the metadata as alternating key/value log arguments in key
// order.
func (m Metadata) Args() []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(m)*2)
	for _, k := range keys {
		args = append(args, k, m[k])
	}
	return args
}

type metadataKeyType struct{}

var metadataKey = metadataKeyType{}
