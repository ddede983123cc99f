package conversation

import (
	"github.com/go-playground/validator/v10"

	"github.com/AliZeynalov/keybridge/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// IsImageAttachment reports whether a is a usable inline image: a MIME type and
// a non-empty base64 payload.
func IsImageAttachment(a models.Attachment) bool {
	return validate.Struct(a) == nil
}

// ImageAttachments converts a decoded JSON value into attachments, dropping
// anything that is not an object with string mime and non-empty string data.
// A value that is not an array yields no attachments.
func ImageAttachments(v any) []models.Attachment {
	raw, _ := v.([]any)
	out := make([]models.Attachment, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		mime, okMime := obj["mime"].(string)
		data, okData := obj["data"].(string)
		if !okMime || !okData {
			continue
		}
		a := models.Attachment{MIME: mime, Data: data}
		if IsImageAttachment(a) {
			out = append(out, a)
		}
	}
	return out
}

// FilterImages returns only the valid attachments of atts, preserving order.
func FilterImages(atts []models.Attachment) []models.Attachment {
	out := make([]models.Attachment, 0, len(atts))
	for _, a := range atts {
		if IsImageAttachment(a) {
			out = append(out, a)
		}
	}
	return out
}
