// Package dispatch fans one conversation out to every enabled provider.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/AliZeynalov/keybridge/internal/models"
	"github.com/AliZeynalov/keybridge/internal/provider"
	"github.com/AliZeynalov/keybridge/internal/relay"
)

// ErrNoProviders means the request enabled no known provider with an API key.
var ErrNoProviders = errors.New("no providers configured")

type requestIDKey struct{}

// WithRequestID tags ctx so dispatch logs can be correlated with the request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Dispatcher issues provider calls concurrently and isolates their failures.
type Dispatcher struct {
	registry *provider.Registry
}

// New creates a Dispatcher over the adapters in registry.
func New(registry *provider.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

type job struct {
	adapter provider.Adapter
	config  models.ProviderConfig
}

func (d *Dispatcher) plan(req models.DispatchRequest) []job {
	var jobs []job
	for _, a := range d.registry.Adapters() {
		cfg, ok := req.Providers[a.ID()]
		if !ok || strings.TrimSpace(cfg.APIKey) == "" {
			continue
		}
		jobs = append(jobs, job{adapter: a, config: cfg})
	}
	return jobs
}

// Enabled lists the providers req would be dispatched to, in registry order.
func (d *Dispatcher) Enabled(req models.DispatchRequest) []models.ProviderID {
	var ids []models.ProviderID
	for _, j := range d.plan(req) {
		ids = append(ids, j.adapter.ID())
	}
	return ids
}

// Start launches one goroutine per enabled provider and returns the channel
// their frames arrive on. Each provider emits zero or one partial frame and
// then exactly one terminal frame; the channel closes once all have finished.
//
// Provider calls do not observe ctx cancellation. A caller that stops reading
// simply abandons the channel, which is buffered for every frame.
func (d *Dispatcher) Start(ctx context.Context, req models.DispatchRequest) (<-chan models.Result, error) {
	for id := range req.Providers {
		if _, ok := d.registry.Lookup(id); !ok {
			log.WithFields(log.Fields{
				"request_id": requestID(ctx),
				"provider":   id,
				"event":      "unknown_provider",
			}).Warn("Ignoring unknown provider")
		}
	}

	jobs := d.plan(req)
	if len(jobs) == 0 {
		return nil, ErrNoProviders
	}

	out := make(chan models.Result, 2*len(jobs))
	callCtx := context.WithoutCancel(ctx)

	var wg conc.WaitGroup
	for _, j := range jobs {
		j := j
		wg.Go(func() {
			out <- d.run(callCtx, j, req, out)
		})
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	log.WithFields(log.Fields{
		"request_id": requestID(ctx),
		"providers":  len(jobs),
		"turns":      len(req.Turns),
		"images":     len(req.Attachments),
		"event":      "dispatch_started",
	}).Info("Dispatching to providers")

	return out, nil
}

// Dispatch waits for every provider and returns terminal results in
// completion order.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) ([]models.Result, error) {
	results, err := d.Start(ctx, req)
	if err != nil {
		return nil, err
	}

	collector := relay.NewCollector(d.Enabled(req)...)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-results:
			if !ok {
				return collector.Results(), nil
			}
			collector.Add(r)
		}
	}
}

// run resolves the model, emits a partial frame, calls the adapter and
// returns the terminal frame. Panics become failed results.
func (d *Dispatcher) run(ctx context.Context, j job, req models.DispatchRequest, partials chan<- models.Result) models.Result {
	start := time.Now()
	id := j.adapter.ID()
	model := strings.TrimSpace(j.config.Model)

	var result models.Result
	var pc panics.Catcher
	pc.Try(func() {
		if model == "" {
			model = j.adapter.ResolveModel(ctx, j.config.APIKey)
		}
		if model == "" {
			result = models.Result{
				OK:       false,
				Provider: id,
				Error:    fmt.Sprintf("Unable to resolve %s model", j.adapter.DisplayName()),
				Ms:       time.Since(start).Milliseconds(),
			}
			return
		}

		partials <- models.Result{OK: true, Provider: id, Model: model, Partial: true, Ms: time.Since(start).Milliseconds()}
		result = j.adapter.Call(ctx, req.Turns, j.config.APIKey, model, req.Attachments)
	})

	if rec := pc.Recovered(); rec != nil {
		log.WithFields(log.Fields{
			"request_id": requestID(ctx),
			"provider":   id,
			"panic":      fmt.Sprint(rec.Value),
			"stack":      string(rec.Stack),
			"event":      "provider_panic",
		}).Error("Provider adapter panicked")
		result = models.Result{OK: false, Provider: id, Model: model, Error: fmt.Sprintf("internal error: %v", rec.Value)}
	}

	result = terminal(result, id, model, start)

	entry := log.WithFields(log.Fields{
		"request_id": requestID(ctx),
		"provider":   id,
		"model":      result.Model,
		"ok":         result.OK,
		"latency_ms": result.Ms,
		"event":      "provider_result",
	})
	if result.OK {
		entry.Info("Provider call succeeded")
	} else {
		entry.WithField("error", result.Error).Warn("Provider call failed")
	}
	return result
}

// terminal fills identity and latency an adapter left out and makes sure
// exactly one of text or error is set.
func terminal(r models.Result, id models.ProviderID, model string, start time.Time) models.Result {
	r.Partial = false
	if r.Provider == "" {
		r.Provider = id
	}
	if r.Model == "" {
		r.Model = model
	}
	if r.Ms == 0 {
		r.Ms = time.Since(start).Milliseconds()
	}
	if r.OK {
		r.Error = ""
	} else {
		r.Text = ""
		if r.Error == "" {
			r.Error = "Unknown error"
		}
	}
	return r
}
