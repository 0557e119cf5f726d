// Package simulator provides an in-memory adapter that generates wave
// function tag values. It implements tag search, snapshot and raw reads,
// value writes, and a ping extension feature, and exists to exercise the
// full host surface without external systems.
package simulator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/extension"
	"github.com/c360/adapterkit/pipeline"
	"github.com/c360/adapterkit/variant"
)

// WaveType selects the wave function backing a simulated tag.
type WaveType string

// Supported wave functions.
const (
	WaveSine     WaveType = "sine"
	WaveSawtooth WaveType = "sawtooth"
	WaveSquare   WaveType = "square"
)

// TagSpec configures one simulated tag.
type TagSpec struct {
	Name      string        `yaml:"name" json:"name"`
	Wave      WaveType      `yaml:"wave" json:"wave"`
	Period    time.Duration `yaml:"period" json:"period"`
	Amplitude float64       `yaml:"amplitude" json:"amplitude"`
	Offset    float64       `yaml:"offset" json:"offset"`
	Units     string        `yaml:"units" json:"units"`
}

// Config configures the simulator adapter.
type Config struct {
	ID           string        `yaml:"id" json:"id"`
	Name         string        `yaml:"name" json:"name"`
	Tags         []TagSpec     `yaml:"tags" json:"tags"`
	SampleEvery  time.Duration `yaml:"sample_every" json:"sample_every"`
	MaxWriteSize int           `yaml:"max_write_size" json:"max_write_size"`
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.ID == "" {
		return errors.WrapInvalid(
			fmt.Errorf("adapter id is required"),
			"Simulator", "Validate", "check id")
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.SampleEvery <= 0 {
		c.SampleEvery = time.Second
	}
	if c.MaxWriteSize <= 0 {
		c.MaxWriteSize = adapter.DefaultMaxWriteSize
	}
	seen := make(map[string]bool, len(c.Tags))
	for i := range c.Tags {
		tag := &c.Tags[i]
		if tag.Name == "" {
			return errors.WrapInvalid(
				fmt.Errorf("tag %d has no name", i),
				"Simulator", "Validate", "check tags")
		}
		if seen[tag.Name] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate tag %q", tag.Name),
				"Simulator", "Validate", "check tags")
		}
		seen[tag.Name] = true
		if tag.Period <= 0 {
			tag.Period = time.Minute
		}
		if tag.Amplitude == 0 {
			tag.Amplitude = 1
		}
		switch tag.Wave {
		case WaveSine, WaveSawtooth, WaveSquare:
		case "":
			tag.Wave = WaveSine
		default:
			return errors.WrapInvalid(
				fmt.Errorf("unknown wave type %q for tag %q", tag.Wave, tag.Name),
				"Simulator", "Validate", "check tags")
		}
	}
	return nil
}

// DefaultConfig returns a three-tag simulator covering each wave type.
func DefaultConfig(id string) Config {
	return Config{
		ID:   id,
		Name: "Wave Simulator",
		Tags: []TagSpec{
			{Name: "sine-1", Wave: WaveSine, Period: time.Minute, Amplitude: 50, Offset: 50, Units: "degC"},
			{Name: "saw-1", Wave: WaveSawtooth, Period: 30 * time.Second, Amplitude: 10, Units: "bar"},
			{Name: "square-1", Wave: WaveSquare, Period: 10 * time.Second, Amplitude: 1, Units: "state"},
		},
	}
}

// Adapter is the wave-function simulator.
type Adapter struct {
	*adapter.BaseAdapter

	cfg  Config
	tags []TagSpec
	ping *extension.Feature

	// now is the clock; replaced in tests.
	now func() time.Time

	// writes holds values accepted on the write path, keyed by tag.
	// A written value overrides the wave function for its tag.
	mu     sync.RWMutex
	writes map[string]adapter.TagValue
}

// New creates a simulator adapter from cfg.
func New(cfg Config, opts ...adapter.BaseOption) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		cfg:    cfg,
		tags:   cfg.Tags,
		now:    time.Now,
		writes: make(map[string]adapter.TagValue),
	}
	a.BaseAdapter = adapter.NewBaseAdapter(adapter.Descriptor{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Description: "In-memory wave function simulator",
	}, opts...)

	ping, err := newPingFeature()
	if err != nil {
		return nil, err
	}
	a.ping = ping

	features := a.Features()
	if err := features.AddStandard(adapter.FeatureTagSearch, adapter.TagSearcher(a)); err != nil {
		return nil, err
	}
	if err := features.AddStandard(adapter.FeatureReadSnapshot, adapter.SnapshotReader(a)); err != nil {
		return nil, err
	}
	if err := features.AddStandard(adapter.FeatureReadRaw, adapter.RawReader(a)); err != nil {
		return nil, err
	}
	if err := features.AddStandard(adapter.FeatureWriteValues, adapter.ValueWriter(a)); err != nil {
		return nil, err
	}
	if err := features.AddExtension(ping); err != nil {
		return nil, err
	}
	return a, nil
}

// value computes the wave function for tag at time t, unless a written
// value overrides it.
func (a *Adapter) value(tag TagSpec, t time.Time) adapter.TagValue {
	a.mu.RLock()
	written, ok := a.writes[tag.Name]
	a.mu.RUnlock()
	if ok {
		return written
	}

	phase := math.Mod(float64(t.UnixNano()), float64(tag.Period.Nanoseconds())) /
		float64(tag.Period.Nanoseconds())

	var v float64
	switch tag.Wave {
	case WaveSawtooth:
		v = tag.Offset + tag.Amplitude*phase
	case WaveSquare:
		if phase < 0.5 {
			v = tag.Offset + tag.Amplitude
		} else {
			v = tag.Offset
		}
	default:
		v = tag.Offset + tag.Amplitude*math.Sin(2*math.Pi*phase)
	}

	return adapter.TagValue{
		TagID:     tag.Name,
		Timestamp: t.UTC(),
		Value:     variant.NewDouble(v),
		Quality:   adapter.QualityGood,
	}
}

// findTag returns the spec for a tag name.
func (a *Adapter) findTag(name string) (TagSpec, bool) {
	for _, tag := range a.tags {
		if tag.Name == name {
			return tag, true
		}
	}
	return TagSpec{}, false
}

// SearchTags implements adapter.TagSearcher.
func (a *Adapter) SearchTags(_ context.Context, req *adapter.SearchTagsRequest) (*pipeline.Stream[adapter.TagDefinition], error) {
	if !a.IsRunning() {
		return nil, errors.ErrAdapterNotRunning
	}

	var filter string
	if req != nil {
		filter = strings.ToLower(req.Name)
	}

	matched := make([]adapter.TagDefinition, 0, len(a.tags))
	for _, tag := range a.tags {
		if filter != "" && !strings.Contains(strings.ToLower(tag.Name), filter) {
			continue
		}
		matched = append(matched, adapter.TagDefinition{
			ID:          tag.Name,
			Name:        tag.Name,
			Description: fmt.Sprintf("%s wave, period %s", tag.Wave, tag.Period),
			Units:       tag.Units,
			Labels:      []string{"simulated", string(tag.Wave)},
		})
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if req != nil && req.PageSize > 0 {
		matched = page(matched, req.PageSize, req.Page)
	}

	return pipeline.FromSlice(matched), nil
}

// ReadSnapshot implements adapter.SnapshotReader.
func (a *Adapter) ReadSnapshot(ctx context.Context, req *adapter.ReadSnapshotRequest) (*pipeline.Stream[adapter.TagValue], error) {
	if !a.IsRunning() {
		return nil, errors.ErrAdapterNotRunning
	}
	if req == nil || len(req.Tags) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("at least one tag is required"),
			"Simulator", "ReadSnapshot", "validate request")
	}

	names := req.Tags
	return pipeline.Produce(ctx, len(names), func(ctx context.Context, s *pipeline.Stream[adapter.TagValue]) error {
		t := a.now()
		for _, name := range names {
			tag, ok := a.findTag(name)
			if !ok {
				// Unknown tags are skipped, not fatal to the read.
				continue
			}
			if err := s.Send(ctx, a.value(tag, t)); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

// ReadRaw implements adapter.RawReader. Samples are generated at the
// configured interval across the requested range, oldest first.
func (a *Adapter) ReadRaw(ctx context.Context, req *adapter.ReadRawRequest) (*pipeline.Stream[adapter.TagValue], error) {
	if !a.IsRunning() {
		return nil, errors.ErrAdapterNotRunning
	}
	if req == nil || len(req.Tags) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("at least one tag is required"),
			"Simulator", "ReadRaw", "validate request")
	}
	if !req.End.After(req.Start) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("end %s is not after start %s", req.End, req.Start),
			"Simulator", "ReadRaw", "validate range")
	}

	reqCopy := *req
	step := a.cfg.SampleEvery
	return pipeline.Produce(ctx, 64, func(ctx context.Context, s *pipeline.Stream[adapter.TagValue]) error {
		for _, name := range reqCopy.Tags {
			tag, ok := a.findTag(name)
			if !ok {
				continue
			}
			for t := reqCopy.Start; !t.After(reqCopy.End); t = t.Add(step) {
				if err := s.Send(ctx, a.value(tag, t)); err != nil {
					return err
				}
			}
		}
		return nil
	}), nil
}

// MaxWriteSize implements adapter.ValueWriter.
func (a *Adapter) MaxWriteSize() int {
	return a.cfg.MaxWriteSize
}

// WriteValues implements adapter.ValueWriter. Each accepted value is
// stored as an override for its tag and acknowledged in order.
func (a *Adapter) WriteValues(ctx context.Context, values <-chan adapter.WriteValueItem) (*pipeline.Stream[adapter.WriteResult], error) {
	if !a.IsRunning() {
		return nil, errors.ErrAdapterNotRunning
	}

	return pipeline.Produce(ctx, 1, func(ctx context.Context, s *pipeline.Stream[adapter.WriteResult]) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case item, ok := <-values:
				if !ok {
					return nil
				}
				result := a.applyWrite(item)
				if err := s.Send(ctx, result); err != nil {
					return err
				}
			}
		}
	}), nil
}

func (a *Adapter) applyWrite(item adapter.WriteValueItem) adapter.WriteResult {
	if _, ok := a.findTag(item.TagID); !ok {
		return adapter.WriteResult{
			TagID:  item.TagID,
			Status: adapter.WriteStatusFail,
			Notes:  "unknown tag",
		}
	}

	timestamp := item.Timestamp
	if timestamp.IsZero() {
		timestamp = a.now()
	}

	a.mu.Lock()
	a.writes[item.TagID] = adapter.TagValue{
		TagID:     item.TagID,
		Timestamp: timestamp.UTC(),
		Value:     item.Value,
		Quality:   adapter.QualityGood,
		Notes:     "written value",
	}
	a.mu.Unlock()

	return adapter.WriteResult{TagID: item.TagID, Status: adapter.WriteStatusSuccess}
}

// page applies one-based paging to a sorted result set.
func page[T any](items []T, pageSize, pageNum int) []T {
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
