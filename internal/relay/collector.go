package relay

import (
	"github.com/AliZeynalov/keybridge/internal/models"
)

// NoResponse is the error reported for a provider whose stream ended without
// a terminal frame.
const NoResponse = "No response"

// Collector keeps the latest frame for each provider. Frames are matched by
// provider identity, never by arrival position.
type Collector struct {
	expected []models.ProviderID
	latest   map[models.ProviderID]models.Result
	seen     []models.ProviderID // first-arrival order
	done     []models.ProviderID // terminal-arrival order
}

// NewCollector tracks results, reporting expected providers that never finish.
func NewCollector(expected ...models.ProviderID) *Collector {
	return &Collector{
		expected: expected,
		latest:   make(map[models.ProviderID]models.Result),
	}
}

// Add records r. A terminal frame supersedes earlier partials; anything that
// arrives after a terminal frame for the same provider is ignored.
func (c *Collector) Add(r models.Result) {
	prev, known := c.latest[r.Provider]
	if known && prev.Terminal() {
		return
	}
	if !known {
		c.seen = append(c.seen, r.Provider)
	}
	c.latest[r.Provider] = r
	if r.Terminal() {
		c.done = append(c.done, r.Provider)
	}
}

// Latest returns the most recent frame for id.
func (c *Collector) Latest(id models.ProviderID) (models.Result, bool) {
	r, ok := c.latest[id]
	return r, ok
}

// Pending lists providers that have not produced a terminal frame yet.
func (c *Collector) Pending() []models.ProviderID {
	var out []models.ProviderID
	for _, id := range c.order() {
		if r, ok := c.latest[id]; !ok || !r.Terminal() {
			out = append(out, id)
		}
	}
	return out
}

// Results returns terminal results in completion order, followed by a
// NoResponse failure for every provider still pending.
func (c *Collector) Results() []models.Result {
	out := make([]models.Result, 0, len(c.latest)+len(c.expected))
	for _, id := range c.done {
		out = append(out, c.latest[id])
	}
	for _, id := range c.Pending() {
		r := c.latest[id]
		out = append(out, models.Result{OK: false, Provider: id, Model: r.Model, Error: NoResponse, Ms: r.Ms})
	}
	return out
}

// order is expected providers followed by any unexpected ones that arrived.
func (c *Collector) order() []models.ProviderID {
	out := make([]models.ProviderID, 0, len(c.expected)+len(c.seen))
	listed := make(map[models.ProviderID]bool, len(c.expected))
	for _, id := range c.expected {
		if !listed[id] {
			listed[id] = true
			out = append(out, id)
		}
	}
	for _, id := range c.seen {
		if !listed[id] {
			listed[id] = true
			out = append(out, id)
		}
	}
	return out
}
