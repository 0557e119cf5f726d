// Package adapter defines the contract between the host and its pluggable
// data sources, and the registry through which callers find them.
//
// An adapter is an independently pluggable data source exposing one or more
// features. Standard features (tag search, snapshot and raw history reads,
// annotations, events, asset browsing, value writes) are keyed by a stable
// identifier; extension features are keyed by an absolute URI namespace
// normalized to end with a path separator. Callers never see an adapter's
// concrete implementation, only the feature handles it advertises.
//
// The registry is read-mostly: lookups go through an atomic snapshot and
// take no locks, so resolution scales to unbounded concurrent calls.
package adapter
