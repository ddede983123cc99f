package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliZeynalov/keybridge/internal/models"
)

func TestCollector_TerminalSupersedesPartial(t *testing.T) {
	c := NewCollector(models.ProviderOpenAI, models.ProviderGoogle)

	c.Add(models.Result{OK: true, Provider: models.ProviderGoogle, Model: "gemini", Partial: true})
	c.Add(models.Result{OK: true, Provider: models.ProviderOpenAI, Model: "gpt-4o", Partial: true})
	c.Add(models.Result{OK: true, Provider: models.ProviderOpenAI, Model: "gpt-4o", Text: "fast"})
	c.Add(models.Result{OK: true, Provider: models.ProviderGoogle, Model: "gemini", Text: "slow"})

	results := c.Results()
	require.Len(t, results, 2)
	assert.Equal(t, models.ProviderOpenAI, results[0].Provider, "completion order, not first-seen order")
	assert.Equal(t, "fast", results[0].Text)
	assert.Equal(t, "slow", results[1].Text)
	assert.Empty(t, c.Pending())
}

func TestCollector_IgnoresFramesAfterTerminal(t *testing.T) {
	c := NewCollector()
	c.Add(models.Result{OK: false, Provider: models.ProviderXAI, Error: "boom"})
	c.Add(models.Result{OK: true, Provider: models.ProviderXAI, Partial: true})
	c.Add(models.Result{OK: true, Provider: models.ProviderXAI, Text: "late"})

	latest, ok := c.Latest(models.ProviderXAI)
	require.True(t, ok)
	assert.Equal(t, "boom", latest.Error)
	assert.Len(t, c.Results(), 1)
}

func TestCollector_MissingProvidersFailWithNoResponse(t *testing.T) {
	c := NewCollector(models.ProviderOpenAI, models.ProviderAnthropic, models.ProviderGoogle)
	c.Add(models.Result{OK: true, Provider: models.ProviderAnthropic, Model: "claude", Partial: true, Ms: 3})
	c.Add(models.Result{OK: true, Provider: models.ProviderGoogle, Model: "gemini", Text: "hi"})

	assert.Equal(t, []models.ProviderID{models.ProviderOpenAI, models.ProviderAnthropic}, c.Pending())

	results := c.Results()
	require.Len(t, results, 3)
	assert.Equal(t, "hi", results[0].Text)
	assert.Equal(t, models.Result{OK: false, Provider: models.ProviderOpenAI, Error: NoResponse}, results[1])
	assert.Equal(t, models.Result{OK: false, Provider: models.ProviderAnthropic, Model: "claude", Error: NoResponse, Ms: 3}, results[2])
}
