// Package adapterkit is a host framework for industrial data adapters:
// components that expose tag-based process data (snapshots, history,
// writes) from plant systems through a uniform feature model.
//
// # Architecture
//
// An adapter implements features. Standard features (tag search, snapshot
// read, raw history read, value write) are identified by well-known IDs;
// extension features are identified by absolute URIs and carry
// self-describing operation descriptors with JSON schemas. Callers never
// touch an adapter directly: every request passes through the resolver,
// which checks existence, lifecycle state, feature support, and
// authorization in that order on every call.
//
//	┌──────────────────────────────────────┐
//	│        HTTP Gateway / WebSocket      │  discovery, reads, writes,
//	│          (gateway/http)              │  extension invocation
//	└──────────────────────────────────────┘
//	            ↓ resolves via
//	┌──────────────────────────────────────┐
//	│             Resolver                 │  4-stage checks, never cached
//	└──────────────────────────────────────┘
//	            ↓ dispatches to
//	┌──────────────────────────────────────┐
//	│       Adapters (registry)            │  features + extensions
//	└──────────────────────────────────────┘
//	            ↓ delivers through
//	┌──────────────────────────────────────┐
//	│      Pipeline (pipeline)             │  buffered truncation or
//	│                                      │  streamed channel delivery
//	└──────────────────────────────────────┘
//
// Results flow back through the pipeline package in one of two modes:
// buffered, which collects up to a per-feature limit and marks
// truncation, or streamed, which pushes each value as it is produced.
// Writes are decoupled: values are accepted onto a bounded queue and
// acknowledged individually.
//
// # Packages
//
// Core model:
//   - adapter: feature model, registry, descriptors, base adapter
//   - resolver: four-stage feature resolution and authorization
//   - extension: URI-addressed operations with schema validation
//   - variant: self-describing tagged value codec
//   - pipeline: buffered and streamed result delivery
//
// Hosting:
//   - gateway/http: HTTP and websocket binding
//   - bridge/nats: periodic snapshot push onto JetStream
//   - simulator: wave-generating reference adapter
//   - config: YAML configuration with environment overrides
//   - cmd/adapterhost: the host binary
//
// Infrastructure:
//   - errors: classified error handling
//   - health: adapter health model
//   - metric: Prometheus registry and endpoint
//   - natsclient: NATS connection management
//   - pkg/retry, pkg/worker, pkg/cache, pkg/tlsutil, pkg/timestamp
//
// # Usage
//
// Minimal embedding:
//
//	registry := adapter.NewRegistry()
//	sim, _ := simulator.New(simulator.DefaultConfig("sim-1"))
//	_ = sim.Start(ctx)
//	_ = registry.Register(sim)
//
//	res := resolver.New(registry)
//	reader, _ := resolver.ResolveFeature[adapter.SnapshotReader](
//	    ctx, res, "sim-1", adapter.FeatureReadSnapshot)
//
// The adapterhost binary wires the same pieces from configuration; see
// cmd/adapterhost.
package adapterkit
