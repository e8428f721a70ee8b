package cron

import "context"

// Job represents a scheduled task that runs inside the worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with its schedule expression.
type Entry struct {
	Expr string
	Job  Job
}

// Registry tracks registered jobs and their schedules.
type Registry struct {
	entries []Entry
}

// NewRegistry builds a registry preloaded with the provided entries.
func NewRegistry(entries ...Entry) *Registry {
	registry := &Registry{}
	for _, entry := range entries {
		if entry.Job == nil {
			continue
		}
		registry.entries = append(registry.entries, entry)
	}
	return registry
}

// Register adds a job with its schedule to the registry.
func (r *Registry) Register(expr string, job Job) {
	if job == nil {
		return
	}
	r.entries = append(r.entries, Entry{Expr: expr, Job: job})
}

// Entries returns the registered entries in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
