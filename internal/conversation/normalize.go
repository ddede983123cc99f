// Package conversation turns loosely typed request input into canonical turns
// and attachments.
package conversation

import (
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/AliZeynalov/keybridge/internal/models"
)

// Normalize coerces any decoded JSON value into an ordered list of turns.
// Non-array input yields an empty conversation; array input yields exactly one
// turn per element.
func Normalize(v any) []models.Turn {
	items, ok := v.([]any)
	if !ok {
		return []models.Turn{}
	}

	turns := make([]models.Turn, 0, len(items))
	for _, item := range items {
		turns = append(turns, normalizeTurn(item))
	}
	return turns
}

func normalizeTurn(item any) models.Turn {
	obj, ok := item.(map[string]any)
	if !ok {
		return models.Turn{Role: models.RoleUser, Content: stringify(item)}
	}

	role := models.RoleUser
	if s, ok := obj["role"].(string); ok && models.Role(s).Valid() {
		role = models.Role(s)
	}
	return models.Turn{Role: role, Content: stringify(obj["content"])}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// LastUserIndex returns the index of the most recent user turn, or -1.
func LastUserIndex(turns []models.Turn) int {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleUser {
			return i
		}
	}
	return -1
}
