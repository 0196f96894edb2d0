package assist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// defaultTimeout bounds every assist request. The assist service is
// advisory; a slow answer is worth less than no answer.
const defaultTimeout = 10 * time.Second

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ParsedCommand is the structured interpretation of a voice command.
type ParsedCommand struct {
	Intent     string  `json:"intent"`
	HabitName  string  `json:"habitName,omitempty"`
	Confidence float64 `json:"confidence"`
}

type instructionsRequest struct {
	DeviceName string `json:"deviceName"`
	DeviceType string `json:"deviceType"`
}

type instructionsResponse struct {
	Instructions string `json:"instructions"`
}

type parseRequest struct {
	Command         string   `json:"command"`
	AvailableHabits []string `json:"availableHabits"`
}

// Client talks to the optional assist service for setup guidance and
// voice command parsing. All failures degrade to empty results; the
// assist service is never load-bearing.
type Client struct {
	http   *resty.Client
	logger Logger
}

// New creates an assist client. An empty baseURL returns a disabled
// client whose calls all return empty results.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var http *resty.Client
	if baseURL != "" {
		http = resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	}

	return &Client{
		http:   http,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Enabled reports whether an assist service is configured.
func (c *Client) Enabled() bool {
	return c.http != nil
}

// GetSetupInstructions asks the assist service for human-readable setup
// guidance for a device. Returns "" when the service is unconfigured or
// unavailable.
func (c *Client) GetSetupInstructions(ctx context.Context, deviceName, deviceType string) string {
	if c.http == nil {
		return ""
	}

	var out instructionsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(instructionsRequest{DeviceName: deviceName, DeviceType: deviceType}).
		SetResult(&out).
		Post("/v1/setup-instructions")
	if err != nil {
		c.logger.Warn("assist setup instructions unavailable", "device", deviceName, "error", err)
		return ""
	}
	if resp.IsError() {
		c.logger.Warn("assist setup instructions rejected",
			"device", deviceName,
			"status", resp.StatusCode(),
		)
		return ""
	}
	return out.Instructions
}

// ParseVoiceCommand asks the assist service to interpret a raw voice
// command against the known habit names. Falls back to a local keyword
// match when the service is unconfigured or unavailable.
func (c *Client) ParseVoiceCommand(ctx context.Context, command string, availableHabits []string) ParsedCommand {
	if c.http != nil {
		var out ParsedCommand
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(parseRequest{Command: command, AvailableHabits: availableHabits}).
			SetResult(&out).
			Post("/v1/parse-command")
		if err == nil && !resp.IsError() {
			return out
		}
		if err != nil {
			c.logger.Warn("assist voice parse unavailable", "error", err)
		}
	}
	return localParse(command, availableHabits)
}

// localParse is the offline fallback: substring-match a habit name and
// guess the intent from leading verbs.
func localParse(command string, availableHabits []string) ParsedCommand {
	lowered := strings.ToLower(command)

	parsed := ParsedCommand{Intent: "unknown", Confidence: 0}
	for _, habit := range availableHabits {
		if strings.Contains(lowered, strings.ToLower(habit)) {
			parsed.HabitName = habit
			parsed.Confidence = 0.5
			break
		}
	}

	switch {
	case strings.Contains(lowered, "complete"), strings.Contains(lowered, "done"),
		strings.Contains(lowered, "finish"):
		parsed.Intent = "complete_habit"
	case strings.Contains(lowered, "start"), strings.Contains(lowered, "begin"):
		parsed.Intent = "start_habit"
	case strings.Contains(lowered, "remind"):
		parsed.Intent = "remind"
	}
	if parsed.Intent != "unknown" && parsed.HabitName != "" {
		parsed.Confidence = 0.8
	}
	return parsed
}

// String implements fmt.Stringer for log output.
func (p ParsedCommand) String() string {
	return fmt.Sprintf("intent=%s habit=%q confidence=%.2f", p.Intent, p.HabitName, p.Confidence)
}
