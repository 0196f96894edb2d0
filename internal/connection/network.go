package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/infrastructure/mqtt"
)

// defaultDiscoverWindow bounds a local-network discovery round.
const defaultDiscoverWindow = 3 * time.Second

// Broker is the slice of the MQTT client the network transport needs.
type Broker interface {
	IsConnected() bool
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Network is the local-network transport.
//
// Discovery rides the MQTT broker: the transport solicits announcements
// on the device's discover topic and pairs with the first answer. A
// missing broker connection counts as capability absence; an unanswered
// discovery round counts as no matching device. Both route the manager
// to the simulated fallback.
type Network struct {
	broker   Broker
	rnd      RandomSource
	discover time.Duration
}

// announcement is the payload a local-network device answers discovery with.
type announcement struct {
	NetworkID string `json:"network_id"`
}

// NewNetwork creates the local-network transport.
// A discovery window of 0 uses the default; tests pass a tiny value.
func NewNetwork(broker Broker, rnd RandomSource, discover time.Duration) *Network {
	if discover <= 0 {
		discover = defaultDiscoverWindow
	}
	return &Network{broker: broker, rnd: rnd, discover: discover}
}

// Kind identifies the transport.
func (n *Network) Kind() device.Transport {
	return device.TransportNetwork
}

// Pair runs one discovery round for the catalog entry.
func (n *Network) Pair(ctx context.Context, entry device.CatalogEntry) (PairResult, error) {
	if n.broker == nil || !n.broker.IsConnected() {
		return PairResult{}, ErrCapabilityUnavailable
	}

	topics := mqtt.Topics{}
	announceTopic := topics.Announce(entry.Name)
	found := make(chan string, 1)

	err := n.broker.Subscribe(announceTopic, 1, func(_ string, payload []byte) error {
		var ann announcement
		if err := json.Unmarshal(payload, &ann); err != nil {
			return fmt.Errorf("parsing announcement: %w", err)
		}
		select {
		case found <- ann.NetworkID:
		default: // first answer wins
		}
		return nil
	})
	if err != nil {
		return PairResult{}, fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}
	defer n.broker.Unsubscribe(announceTopic) //nolint:errcheck // Best effort cleanup

	if err := n.broker.Publish(topics.Discover(entry.Name), []byte(`{}`), 1, false); err != nil {
		return PairResult{}, fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}

	select {
	case id := <-found:
		return PairResult{NetworkID: &id}, nil
	case <-time.After(n.discover):
		return PairResult{}, ErrNoMatchingDevice
	case <-ctx.Done():
		return PairResult{}, fmt.Errorf("%w: discovery interrupted", ErrNoMatchingDevice)
	}
}

// Fetch pulls sync data for a paired local-network device.
// Vendor API calls are out of scope; readings come from the catalog
// metric profile while the broker link stands in for reachability.
func (n *Network) Fetch(ctx context.Context, dev device.ConnectedDevice) (device.SyncPayload, error) {
	if err := ctx.Err(); err != nil {
		return device.SyncPayload{}, err
	}
	if n.broker == nil || !n.broker.IsConnected() {
		return device.SyncPayload{}, fmt.Errorf("%w: broker offline", ErrTransportFailure)
	}

	entry, err := device.Catalog(dev.DeviceName)
	if err != nil {
		return device.SyncPayload{}, fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	return generatePayload(entry, n.rnd), nil
}
