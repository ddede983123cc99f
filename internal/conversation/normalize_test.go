package conversation

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliZeynalov/keybridge/internal/models"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestNormalize_NonArrayInput(t *testing.T) {
	inputs := []any{nil, "hello", 42.0, map[string]any{"role": "user"}, true}
	for _, in := range inputs {
		turns := Normalize(in)
		require.NotNil(t, turns)
		assert.Empty(t, turns, "input %#v", in)
	}
}

func TestNormalize_PreservesLengthAndOrder(t *testing.T) {
	v := decode(t, `[
		{"role":"system","content":"be brief"},
		{"role":"user","content":"2+2?"},
		{"role":"assistant","content":"4"},
		{"content":"no role"},
		{"role":"tool","content":"bad role"},
		"bare string",
		7,
		{"role":"user","content":{"nested":true}},
		{"role":"user","content":null},
		{"role":"user","content":[1,2]}
	]`)

	turns := Normalize(v)
	require.Len(t, turns, 10)

	assert.Equal(t, models.Turn{Role: models.RoleSystem, Content: "be brief"}, turns[0])
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "2+2?"}, turns[1])
	assert.Equal(t, models.Turn{Role: models.RoleAssistant, Content: "4"}, turns[2])
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "no role"}, turns[3])
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "bad role"}, turns[4])
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "bare string"}, turns[5])
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "7"}, turns[6])
	assert.Equal(t, `{"nested":true}`, turns[7].Content)
	assert.Equal(t, "", turns[8].Content)
	assert.Equal(t, "[1,2]", turns[9].Content)
}

func TestLastUserIndex(t *testing.T) {
	tests := []struct {
		name  string
		turns []models.Turn
		want  int
	}{
		{"empty", nil, -1},
		{"no user", []models.Turn{{Role: models.RoleSystem}, {Role: models.RoleAssistant}}, -1},
		{"last", []models.Turn{{Role: models.RoleAssistant}, {Role: models.RoleUser}}, 1},
		{"middle", []models.Turn{{Role: models.RoleUser}, {Role: models.RoleUser}, {Role: models.RoleAssistant}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastUserIndex(tt.turns))
		})
	}
}
