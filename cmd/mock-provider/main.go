// mock-provider fakes the model-listing and generation endpoints of every
// supported LLM provider so the gateway can be exercised offline. Point each
// provider's base_url at http://localhost:<port>/<provider>/... to use it.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// settings hold the process-wide failure injection; request headers win.
type settings struct {
	fail  string
	delay time.Duration
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	flagSet := pflag.NewFlagSet("mock-provider", pflag.ContinueOnError)
	port := flagSet.Int("port", 8001, "port to listen on")
	fail := flagSet.String("fail", "", "fail every request: 429, 500, 502, 503, timeout or any 4xx/5xx code")
	delay := flagSet.Int("delay", 0, "delay every response by this many milliseconds")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	r := newRouter(settings{fail: *fail, delay: time.Duration(*delay) * time.Millisecond})

	log.WithFields(log.Fields{"port": *port, "fail": *fail, "delay_ms": *delay}).Info("Mock LLM provider starting")
	if err := r.Run(fmt.Sprintf(":%d", *port)); err != nil {
		log.WithError(err).Fatal("Mock provider stopped")
	}
}

func newRouter(s settings) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.inject())

	// OpenAI-compatible providers share one wire format.
	for prefix, models := range map[string][]string{
		"/openai/v1":         {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "text-embedding-3-small"},
		"/xai/v1":            {"grok-2", "grok-2-mini"},
		"/openrouter/api/v1": {"openai/gpt-4o", "anthropic/claude-3.5-sonnet"},
	} {
		g := r.Group(prefix)
		g.GET("/models", listChatModels(models))
		g.POST("/chat/completions", handleChatCompletion)
	}

	r.POST("/anthropic/v1/messages", handleMessages)

	r.GET("/google/v1beta/models", listGeminiModels)
	r.POST("/google/v1beta/models/:action", handleGenerateContent)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

// inject applies delay and failure simulation before any handler runs.
func (s settings) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		delay := s.delay
		if h := c.GetHeader("X-Mock-Delay"); h != "" {
			if ms, err := strconv.Atoi(h); err == nil && ms >= 0 {
				delay = time.Duration(ms) * time.Millisecond
			}
		}
		fail := s.fail
		if h := c.GetHeader("X-Mock-Fail"); h != "" {
			fail = h
		}

		log.WithFields(log.Fields{
			"path":     c.Request.URL.Path,
			"delay_ms": delay.Milliseconds(),
			"fail":     fail,
		}).Info("Received request")

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if fail != "" {
			handleFailure(c, fail)
			c.Abort()
			return
		}
		c.Next()
	}
}

func handleFailure(c *gin.Context, failType string) {
	log.Warnf("Simulating failure: %s", failType)

	respond := func(code int, kind, message string) {
		c.JSON(code, gin.H{"error": gin.H{"message": message, "type": kind}})
	}

	switch failType {
	case "429":
		respond(http.StatusTooManyRequests, "rate_limit_error", "Rate limit exceeded. Please retry after some time.")
	case "500":
		respond(http.StatusInternalServerError, "server_error", "Internal server error")
	case "502":
		respond(http.StatusBadGateway, "server_error", "Bad gateway")
	case "503":
		respond(http.StatusServiceUnavailable, "server_error", "Service temporarily unavailable")
	case "timeout":
		// Hold the connection until the caller gives up.
		<-c.Request.Context().Done()
	default:
		code, err := strconv.Atoi(failType)
		if err == nil && code >= 400 && code < 600 {
			respond(code, "simulated_error", fmt.Sprintf("Simulated error %d", code))
			return
		}
		respond(http.StatusInternalServerError, "server_error", "Unknown failure type")
	}
}

func reply(provider, model, prompt string) string {
	if prompt == "" {
		return fmt.Sprintf("Hello from mock %s (%s).", provider, model)
	}
	return fmt.Sprintf("Mock %s (%s) received: %s", provider, model, prompt)
}

func listChatModels(ids []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := make([]gin.H, 0, len(ids))
		for _, id := range ids {
			data = append(data, gin.H{"id": id, "object": "model", "owned_by": "mock"})
		}
		c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
	}
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
}

func handleChatCompletion(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error(), "type": "invalid_request_error"}})
		return
	}

	prompt := ""
	for _, m := range req.Messages {
		if m.Role != "user" {
			continue
		}
		switch content := m.Content.(type) {
		case string:
			prompt = content
		case []any:
			// text part of a multimodal message
			for _, part := range content {
				if p, ok := part.(map[string]any); ok && p["type"] == "text" {
					prompt, _ = p["text"].(string)
				}
			}
		}
	}
	provider := strings.SplitN(strings.TrimPrefix(c.Request.URL.Path, "/"), "/", 2)[0]

	c.JSON(http.StatusOK, gin.H{
		"id":      "chatcmpl-" + uuid.NewString(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []gin.H{
			{
				"index":         0,
				"message":       gin.H{"role": "assistant", "content": reply(provider, req.Model, prompt)},
				"finish_reason": "stop",
			},
		},
		"usage": gin.H{"prompt_tokens": 10, "completion_tokens": 15, "total_tokens": 25},
	})
}

type messagesRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func handleMessages(c *gin.Context) {
	if c.GetHeader("x-api-key") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"type": "error", "error": gin.H{"type": "authentication_error", "message": "x-api-key header is required"}})
		return
	}
	var req messagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"type": "error", "error": gin.H{"type": "invalid_request_error", "message": err.Error()}})
		return
	}

	prompt := ""
	for _, m := range req.Messages {
		if m.Role != "user" {
			continue
		}
		for _, block := range m.Content {
			if block.Type == "text" {
				prompt = block.Text
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          "msg_" + uuid.NewString(),
		"type":        "message",
		"role":        "assistant",
		"model":       req.Model,
		"content":     []gin.H{{"type": "text", "text": reply("anthropic", req.Model, prompt)}},
		"stop_reason": "end_turn",
	})
}

func listGeminiModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": []gin.H{
		{"name": "models/gemini-2.5-pro", "supportedGenerationMethods": []string{"generateContent"}},
		{"name": "models/gemini-2.0-flash", "supportedGenerationMethods": []string{"generateContent"}},
		{"name": "models/text-embedding-004", "supportedGenerationMethods": []string{"embedContent"}},
	}})
}

type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func handleGenerateContent(c *gin.Context) {
	model, method, ok := strings.Cut(c.Param("action"), ":")
	if !ok || method != "generateContent" {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": 404, "message": "Unknown method " + c.Param("action"), "status": "NOT_FOUND"}})
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": 400, "message": err.Error(), "status": "INVALID_ARGUMENT"}})
		return
	}

	prompt := ""
	for _, content := range req.Contents {
		if content.Role != "user" {
			continue
		}
		for _, p := range content.Parts {
			if p.Text != "" {
				prompt = p.Text
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"candidates": []gin.H{{
		"content":      gin.H{"role": "model", "parts": []gin.H{{"text": reply("google", model, prompt)}}},
		"finishReason": "STOP",
	}}})
}
