package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AliZeynalov/keybridge/internal/models"
)

func TestModelCache_GetSet(t *testing.T) {
	c := NewModelCache(0)

	_, ok := c.Get(models.ProviderOpenAI, "k1")
	assert.False(t, ok)

	c.Set(models.ProviderOpenAI, "k1", "gpt-4o")
	got, ok := c.Get(models.ProviderOpenAI, "k1")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o", got)

	_, ok = c.Get(models.ProviderXAI, "k1")
	assert.False(t, ok, "entries are per provider")

	c.Invalidate(models.ProviderOpenAI, "k1")
	_, ok = c.Get(models.ProviderOpenAI, "k1")
	assert.False(t, ok)
}

func TestModelCache_TTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewModelCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set(models.ProviderGoogle, "k", "gemini-2.5-pro")
	now = now.Add(59 * time.Second)
	_, ok := c.Get(models.ProviderGoogle, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get(models.ProviderGoogle, "k")
	assert.False(t, ok)
}

func TestModelCache_DoesNotHoldRawKeys(t *testing.T) {
	c := NewModelCache(0)
	c.Set(models.ProviderOpenAI, "sk-secret", "gpt-4o")
	for key := range c.entries {
		assert.NotContains(t, key.digest, "sk-secret")
		assert.Len(t, key.digest, 64)
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "nested", errorMessage(400, []byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "flat", errorMessage(400, []byte(`{"error":"flat"}`)))
	assert.Equal(t, "top", errorMessage(400, []byte(`{"message":"top"}`)))
	assert.Equal(t, "request failed with status code 429", errorMessage(429, []byte(`not json`)))
	assert.Equal(t, "request failed with status code 500", errorMessage(500, nil))
}
