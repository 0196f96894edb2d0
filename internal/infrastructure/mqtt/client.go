package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pulsehabit/devicelink/internal/infrastructure/config"
)

// defaultConnectTimeout bounds the initial broker connection attempt.
const defaultConnectTimeout = 10 * time.Second

// defaultPublishTimeout bounds a single publish operation.
const defaultPublishTimeout = 5 * time.Second

// Client wraps paho.mqtt.golang with devicelink-specific functionality.
//
// It provides connection management, message publishing, subscription
// handling, and automatic reconnection. The smart-home automation engine
// publishes commands through it, the network transport uses it for
// discovery, and the engine treats its connect/disconnect callbacks as
// the host connectivity signal.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library.
// They should not block for extended periods.
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a connection to the MQTT broker.
//
// It configures a Last Will and Testament on the system status topic so
// peers observe the engine going offline, enables auto-reconnect with
// exponential backoff, and attempts the initial connection with a timeout.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)

	c := &Client{
		cfg:           cfg,
		options:       opts,
		subscriptions: make(map[string]subscription),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Set connected state immediately after successful connection.
	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so we set it here to ensure IsConnected() returns true.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// buildClientOptions translates config into paho client options.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(cfg.Broker.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetOrderMatters(false).
		SetCleanSession(false)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// LWT: peers see the engine drop off the broker.
	opts.SetWill(Topics{}.SystemStatus(), `{"online":false}`, 1, true)

	return opts
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.restoreSubscriptions()
	c.publishOnlineStatus()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Re-subscribe (ignore errors during reconnection)
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// publishOnlineStatus publishes the engine's online status retained.
func (c *Client) publishOnlineStatus() {
	payload := fmt.Sprintf(`{"online":true,"client_id":%q}`, c.cfg.Broker.ClientID)
	c.client.Publish(Topics{}.SystemStatus(), 1, true, payload)
}

// SetOnConnect registers a callback invoked after every (re)connection.
func (c *Client) SetOnConnect(fn func()) {
	c.callbackMu.Lock()
	c.onConnect = fn
	c.callbackMu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the connection drops.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = fn
	c.callbackMu.Unlock()
}

// SetLogger sets the logger used for handler panics and publish errors.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// IsConnected reports whether the client currently has a broker connection.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// Publish sends a message to the specified topic.
//
// Parameters:
//   - topic: Destination topic
//   - payload: Raw message payload (typically JSON)
//   - qos: Quality of service (0, 1 or 2)
//   - retained: Whether the broker should retain the message
//
// Returns:
//   - error: ErrNotConnected if offline, or a wrapped publish failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: publish to %q timed out", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers a handler for a topic (wildcards allowed).
// The subscription survives reconnects.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: subscribe to %q timed out", ErrSubscribeFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, qos: qos, handler: handler}
	c.subMu.Unlock()

	return nil
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(topic string) error {
	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: unsubscribe from %q timed out", ErrSubscribeFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	return nil
}

// wrapHandler adapts a MessageHandler to paho's callback, recovering
// panics and logging handler errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logf("mqtt handler panic", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logf("mqtt handler error", "topic", msg.Topic(), "error", err)
		}
	}
}

// logf logs through the configured logger, if any.
func (c *Client) logf(msg string, args ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()
	if logger != nil {
		logger.Error(msg, args...)
	}
}

// Disconnect publishes the offline status and closes the connection.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Publish(Topics{}.SystemStatus(), 1, true, `{"online":false}`)
	}
	c.client.Disconnect(250) // milliseconds to flush in-flight messages

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()
}
