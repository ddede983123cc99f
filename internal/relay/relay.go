// Package relay streams dispatch results as newline-delimited JSON frames and
// reconciles them on the consuming side.
package relay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/AliZeynalov/keybridge/internal/models"
	"github.com/AliZeynalov/keybridge/internal/provider"
)

// ContentType is the media type of a relayed stream.
const ContentType = "application/x-ndjson"

// Writer encodes one frame per line and flushes after every frame when the
// underlying writer supports it.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Write sends r as a single frame.
func (w *Writer) Write(r models.Result) error {
	line, err := json.Marshal(models.Frame{Type: models.FrameTypeResult, Result: r})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// Pipe forwards results to w until the channel closes. It stops early, without
// draining, when ctx is done or a write fails; producers must not block on an
// abandoned channel.
func Pipe(ctx context.Context, results <-chan models.Result, w *Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-results:
			if !ok {
				return nil
			}
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
}

// maxFrameSize bounds a single decoded line. A frame carries at most one
// provider response, and escaping can grow each byte to six (\u00XX).
const maxFrameSize = 6*provider.MaxResponseSize + 64*1024

// Reader decodes frames from a relayed stream.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader reads frames from r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &Reader{scanner: s}
}

// Next returns the next frame, skipping blank lines. It returns io.EOF at the
// end of the stream.
func (r *Reader) Next() (models.Frame, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var f models.Frame
		if err := json.Unmarshal(line, &f); err != nil {
			return models.Frame{}, fmt.Errorf("decode frame: %w", err)
		}
		return f, nil
	}
	if err := r.scanner.Err(); err != nil {
		return models.Frame{}, err
	}
	return models.Frame{}, io.EOF
}
