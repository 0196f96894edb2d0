package device

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDevice(t *testing.T) {
	valid := func() *ConnectedDevice {
		return &ConnectedDevice{
			ID:               "dev-1",
			DeviceType:       TypeWearable,
			DeviceName:       "fitbit",
			ConnectionStatus: StatusConnected,
			Transport:        TransportBluetooth,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ConnectedDevice)
		wantErr error
	}{
		{
			name:    "valid device",
			mutate:  func(*ConnectedDevice) {},
			wantErr: nil,
		},
		{
			name:    "missing id",
			mutate:  func(d *ConnectedDevice) { d.ID = "" },
			wantErr: ErrInvalidDevice,
		},
		{
			name:    "missing device name",
			mutate:  func(d *ConnectedDevice) { d.DeviceName = "" },
			wantErr: ErrInvalidDevice,
		},
		{
			name:    "unknown device type",
			mutate:  func(d *ConnectedDevice) { d.DeviceType = "toaster" },
			wantErr: ErrInvalidDeviceType,
		},
		{
			name:    "unknown status",
			mutate:  func(d *ConnectedDevice) { d.ConnectionStatus = "sleeping" },
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "unknown transport",
			mutate:  func(d *ConnectedDevice) { d.Transport = "carrier-pigeon" },
			wantErr: ErrInvalidTransport,
		},
		{
			name:    "negative sync frequency",
			mutate:  func(d *ConnectedDevice) { d.SyncFrequencyMinutes = -5 },
			wantErr: ErrInvalidSyncFrequency,
		},
		{
			name:    "display name too long",
			mutate:  func(d *ConnectedDevice) { d.DisplayName = strings.Repeat("x", 101) },
			wantErr: ErrInvalidDevice,
		},
		{
			name: "oversized metadata value",
			mutate: func(d *ConnectedDevice) {
				d.DeviceMetadata = Metadata{"blob": strings.Repeat("x", 2048)}
			},
			wantErr: ErrInvalidDevice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := ValidateDevice(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateDevice() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	t.Run("known device", func(t *testing.T) {
		entry, err := Catalog("fitbit")
		if err != nil {
			t.Fatalf("Catalog() error = %v", err)
		}
		if entry.Type != TypeWearable {
			t.Errorf("Type = %q, want %q", entry.Type, TypeWearable)
		}
		if len(entry.Metrics) == 0 {
			t.Error("fitbit catalog entry has no metric profile")
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		if _, err := Catalog("nokia-3310"); !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("Catalog() error = %v, want ErrUnknownDevice", err)
		}
	})
}

func TestDeepCopy(t *testing.T) {
	orig := &ConnectedDevice{
		ID:               "dev-1",
		DeviceType:       TypeWearable,
		DeviceName:       "fitbit",
		ConnectionStatus: StatusConnected,
		Transport:        TransportBluetooth,
		DeviceMetadata: Metadata{
			"steps":  1000.0,
			"nested": map[string]any{"a": 1.0},
		},
	}

	cp := orig.DeepCopy()
	cp.DeviceMetadata["steps"] = 2000.0
	cp.DeviceMetadata["nested"].(map[string]any)["a"] = 9.0

	if orig.DeviceMetadata["steps"] != 1000.0 {
		t.Error("DeepCopy shares top-level metadata")
	}
	if orig.DeviceMetadata["nested"].(map[string]any)["a"] != 1.0 {
		t.Error("DeepCopy shares nested metadata")
	}
}
