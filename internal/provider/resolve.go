package provider

import (
	"context"
	"regexp"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/AliZeynalov/keybridge/internal/models"
)

// listFunc fetches the model ids visible to apiKey.
type listFunc func(ctx context.Context, apiKey string) ([]string, error)

// ranking orders candidate models: exact ids first, then family patterns in
// order, then whatever the provider listed first.
type ranking struct {
	exact    []string
	families []*regexp.Regexp
}

func (r ranking) pick(ids []string) string {
	for _, want := range r.exact {
		if slices.Contains(ids, want) {
			return want
		}
	}
	for _, family := range r.families {
		for _, id := range ids {
			if family.MatchString(id) {
				return id
			}
		}
	}
	if len(ids) > 0 {
		return ids[0]
	}
	return ""
}

type resolver struct {
	provider models.ProviderID
	cache    *ModelCache
	timeout  time.Duration
	fallback string
	list     listFunc // nil when the provider has no listing endpoint
	rank     ranking
	group    singleflight.Group
}

func newResolver(id models.ProviderID, opts Options, list listFunc, rank ranking) *resolver {
	return &resolver{
		provider: id,
		cache:    opts.Cache,
		timeout:  opts.DiscoveryTimeout,
		fallback: opts.Endpoint.DefaultModel,
		list:     list,
		rank:     rank,
	}
}

func (r *resolver) discover(ctx context.Context, apiKey string) (string, error) {
	if r.list == nil {
		return r.fallback, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ids, err := r.list(ctx, apiKey)
	if err != nil {
		return "", err
	}
	model := r.rank.pick(ids)
	if model == "" {
		return "", errNoModels
	}
	return model, nil
}

// resolve returns the cached model or discovers one. Concurrent lookups for
// the same key share one discovery call.
func (r *resolver) resolve(ctx context.Context, apiKey string) string {
	if model, ok := r.cache.Get(r.provider, apiKey); ok {
		return model
	}

	v, err, _ := r.group.Do(keyDigest(apiKey), func() (any, error) {
		if model, ok := r.cache.Get(r.provider, apiKey); ok {
			return model, nil
		}
		model, err := r.discover(ctx, apiKey)
		if err != nil {
			return "", err
		}
		r.cache.Set(r.provider, apiKey, model)
		return model, nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"provider": r.provider,
			"api_key":  RedactKey(apiKey),
			"fallback": r.fallback,
			"error":    err.Error(),
			"event":    "model_discovery_failed",
		}).Warn("Model discovery failed, using default")
		return r.fallback
	}

	model := v.(string)
	log.WithFields(log.Fields{
		"provider": r.provider,
		"api_key":  RedactKey(apiKey),
		"model":    model,
		"event":    "model_resolved",
	}).Debug("Model resolved")
	return model
}

func (r *resolver) validate(ctx context.Context, apiKey string) (string, error) {
	model, err := r.discover(ctx, apiKey)
	if err != nil {
		return "", err
	}
	r.cache.Set(r.provider, apiKey, model)
	return model, nil
}
