package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSanitizeModelJSON(t *testing.T) {
	raw := "```json\n{\n  // the garment\n  \"category\": \"shirt\", /* guess */\n  \"tags\": [\"cotton\", \"casual\",],\n}\n```"
	got := sanitizeModelJSON(raw)

	var v struct {
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("Expected valid JSON, got %q: %v", got, err)
	}
	if v.Category != "shirt" || len(v.Tags) != 2 {
		t.Errorf("Unexpected result %+v", v)
	}
}

func TestParseTagSuggestion(t *testing.T) {
	s := parseTagSuggestion(`Sure! {"category":"jacket","colors":["navy"],"tags":["denim"],"confidence":0.8}`)
	if s.Category != "jacket" || s.Confidence != 0.8 || len(s.Colors) != 1 {
		t.Errorf("Unexpected suggestion %+v", s)
	}

	s = parseTagSuggestion("I think it is a jacket")
	if s.Confidence != 0.1 || s.Category != "unknown" {
		t.Errorf("Expected fallback for prose, got %+v", s)
	}

	s = parseTagSuggestion(`{"category": }`)
	if s.Description != "Failed to parse model response" {
		t.Errorf("Expected parse fallback, got %+v", s)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("ftp://host"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
	if _, err := NewClient(DefaultURL + "/api/chat"); err != nil {
		t.Errorf("Expected URL with path to be accepted, got %v", err)
	}
}

func TestSuggestTagsRoundTrip(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":      req.Model,
			"created_at": "2024-01-01T00:00:00Z",
			"message": map[string]any{
				"role":    "assistant",
				"content": `{"category":"dress","tags":["summer"],"confidence":0.9}`,
			},
			"done": true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	img := base64.StdEncoding.EncodeToString([]byte("png"))
	s, err := c.SuggestTags(context.Background(), "llava", "describe", img)
	if err != nil {
		t.Fatalf("SuggestTags failed: %v", err)
	}
	if gotModel != "llava" {
		t.Errorf("Expected model llava, got %q", gotModel)
	}
	if s.Category != "dress" || s.Confidence != 0.9 {
		t.Errorf("Unexpected suggestion %+v", s)
	}

	if _, err := c.SuggestTags(context.Background(), "llava", "describe", "%%%"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}
