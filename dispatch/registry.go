// Package dispatch routes decoded action messages to their registered
// processors, one worker per charge point connection.
package dispatch

import (
	"sort"
	"sync"

	"cpsys/ocpp"
)

// Processor handles one action message. A processor reports its outcome through
// the callback; a returned error stands for a failure the processor could not
// turn into a protocol result itself.
type Processor interface {
	Process(env *ocpp.Envelope, callback ocpp.ResultCallback) error
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(env *ocpp.Envelope, callback ocpp.ResultCallback) error

func (f ProcessorFunc) Process(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	return f(env, callback)
}

type registration struct {
	priority  int
	sequence  int
	processor Processor
}

// Registry holds the processors registered per action. Processors run in
// priority order, highest first; equal priorities keep registration order.
type Registry struct {
	mu       sync.RWMutex
	entries  map[ocpp.Action][]registration
	sequence int
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[ocpp.Action][]registration)}
}

func (r *Registry) Register(action ocpp.Action, processor Processor) {
	r.RegisterPriority(action, 0, processor)
}

func (r *Registry) RegisterPriority(action ocpp.Action, priority int, processor Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequence++
	entries := append(r.entries[action], registration{priority: priority, sequence: r.sequence, processor: processor})
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].sequence < entries[j].sequence
	})
	r.entries[action] = entries
}

// Processors returns the processors for an action in execution order.
func (r *Registry) Processors(action ocpp.Action) []Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.entries[action]
	if len(entries) == 0 {
		return nil
	}
	processors := make([]Processor, len(entries))
	for i, entry := range entries {
		processors[i] = entry.processor
	}
	return processors
}
