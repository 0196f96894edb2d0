package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Disabled(t *testing.T) {
	c := New("", 0)

	if c.Enabled() {
		t.Error("Enabled() = true for empty base URL")
	}
	if got := c.GetSetupInstructions(context.Background(), "fitbit", "wearable"); got != "" {
		t.Errorf("GetSetupInstructions() = %q, want empty", got)
	}

	// Voice parsing still works through the local fallback.
	parsed := c.ParseVoiceCommand(context.Background(), "complete morning walk", []string{"Morning Walk"})
	if parsed.Intent != "complete_habit" {
		t.Errorf("Intent = %q, want complete_habit", parsed.Intent)
	}
}

func TestClient_GetSetupInstructions(t *testing.T) {
	t.Run("returns service answer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/setup-instructions" {
				t.Errorf("path = %s", r.URL.Path)
			}
			var req struct {
				DeviceName string `json:"deviceName"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			if req.DeviceName != "fitbit" {
				t.Errorf("deviceName = %q, want fitbit", req.DeviceName)
			}
			json.NewEncoder(w).Encode(map[string]string{"instructions": "hold the button for 5 seconds"}) //nolint:errcheck
		}))
		defer srv.Close()

		c := New(srv.URL, 2*time.Second)
		got := c.GetSetupInstructions(context.Background(), "fitbit", "wearable")
		if got != "hold the button for 5 seconds" {
			t.Errorf("GetSetupInstructions() = %q", got)
		}
	})

	t.Run("server error degrades to empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(srv.URL, 2*time.Second)
		if got := c.GetSetupInstructions(context.Background(), "fitbit", "wearable"); got != "" {
			t.Errorf("GetSetupInstructions() = %q, want empty on 500", got)
		}
	})
}

func TestClient_ParseVoiceCommand(t *testing.T) {
	t.Run("prefers service result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(ParsedCommand{ //nolint:errcheck
				Intent:     "complete_habit",
				HabitName:  "Morning Walk",
				Confidence: 0.95,
			})
		}))
		defer srv.Close()

		c := New(srv.URL, 2*time.Second)
		parsed := c.ParseVoiceCommand(context.Background(), "gibberish", nil)
		if parsed.Confidence != 0.95 || parsed.HabitName != "Morning Walk" {
			t.Errorf("ParseVoiceCommand() = %v, want service result", parsed)
		}
	})

	t.Run("falls back locally when service errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := New(srv.URL, 2*time.Second)
		parsed := c.ParseVoiceCommand(context.Background(), "mark meditation as done", []string{"Meditation"})
		if parsed.Intent != "complete_habit" || parsed.HabitName != "Meditation" {
			t.Errorf("fallback parse = %v", parsed)
		}
	})
}

func TestLocalParse(t *testing.T) {
	habits := []string{"Morning Walk", "Meditation"}

	tests := []struct {
		name           string
		command        string
		wantIntent     string
		wantHabit      string
		wantConfidence float64
	}{
		{"complete with habit", "complete my morning walk", "complete_habit", "Morning Walk", 0.8},
		{"done counts as complete", "meditation is done", "complete_habit", "Meditation", 0.8},
		{"start with habit", "start meditation now", "start_habit", "Meditation", 0.8},
		{"remind intent", "remind me about meditation", "remind", "Meditation", 0.8},
		{"intent without habit", "finish it", "complete_habit", "", 0},
		{"habit without intent", "morning walk", "unknown", "Morning Walk", 0.5},
		{"nothing recognised", "what is the weather", "unknown", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := localParse(tt.command, habits)
			if got.Intent != tt.wantIntent {
				t.Errorf("Intent = %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.HabitName != tt.wantHabit {
				t.Errorf("HabitName = %q, want %q", got.HabitName, tt.wantHabit)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}
