package application

import (
	"context"
	"fmt"
)

// Entry is a recognized device together with its per-category ordinal.
type Entry struct {
	Device   Device
	Category Category
	Ordinal  int
}

type entryKey struct {
	category Category
	ordinal  int
}

// Registry is an immutable snapshot of the cloud device list. Ordinals are
// only meaningful within the snapshot they were computed from.
type Registry struct {
	devices []Device
	entries []Entry

	byAddress      map[entryKey]Entry
	byCommandTopic map[string]Entry
}

func FetchRegistry(ctx context.Context, cloud CloudClient) (*Registry, error) {
	devices, err := cloud.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch devices: %w", err)
	}
	return NewRegistry(devices), nil
}

func NewRegistry(devices []Device) *Registry {
	r := &Registry{
		devices:        devices,
		byAddress:      make(map[entryKey]Entry),
		byCommandTopic: make(map[string]Entry),
	}

	counters := map[Category]int{}
	for _, d := range devices {
		c := d.Category()
		if c == CategoryUnsupported {
			continue
		}

		counters[c]++
		e := Entry{Device: d, Category: c, Ordinal: counters[c]}

		r.entries = append(r.entries, e)
		r.byAddress[entryKey{c, e.Ordinal}] = e
		if c == CategoryExteriorScreen {
			r.byCommandTopic[CommandTopic(c, e.Ordinal)] = e
		}
	}

	return r
}

// Devices returns every device of the snapshot, unsupported ones included.
func (r *Registry) Devices() []Device {
	return r.devices
}

// Entries returns the recognized devices in snapshot order.
func (r *Registry) Entries() []Entry {
	return r.entries
}

func (r *Registry) Lookup(c Category, ordinal int) (Entry, bool) {
	e, ok := r.byAddress[entryKey{c, ordinal}]
	return e, ok
}

// ScreenForCommandTopic finds the exterior screen listening on topic. Light
// sensors have no command topic and never match.
func (r *Registry) ScreenForCommandTopic(topic string) (Entry, bool) {
	e, ok := r.byCommandTopic[topic]
	return e, ok
}
