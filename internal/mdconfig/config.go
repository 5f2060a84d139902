// Package mdconfig loads the JSON configuration document for the market
// data engine, following the teacher's internal/ops "FileConfig ->
// resolved" loader shape.
package mdconfig

import (
	"encoding/json"
	"os"

	"main/internal/mderrors"
)

// File mirrors the top-level JSON configuration document.
type File struct {
	Application ApplicationConfig `json:"application"`
	Connections []ConnectionConfig `json:"connections"`
}

// ApplicationConfig carries process-wide settings.
type ApplicationConfig struct {
	ModuleName  string `json:"module_name"`
	LogPath     string `json:"log_path"`
	LogLevel    string `json:"log_level"`
	MetricsAddr string `json:"metrics_addr"`
	// ProfilerServerAddress, when set, starts a continuous pyroscope
	// profiler pushing to that server. Optional; leave empty to disable.
	ProfilerServerAddress string `json:"profiler_server_address"`
}

// ConnectionConfig describes one exchange connection, its symbol groups,
// and its tunables.
type ConnectionConfig struct {
	Exchange              string              `json:"exchange"`
	MdSize                uint32              `json:"md_size"`
	Redundancy            int                 `json:"redundancy"`
	CPUAffinity           *int                `json:"cpu_affinity"`
	RotationWindowSeconds int                 `json:"rotation_window_seconds"`
	RotationFloorRatio    float64             `json:"rotation_floor_ratio"`
	Spot                  *ProductGroup       `json:"spot"`
	Futures               *ProductGroup       `json:"futures"`
	InverseFutures        *ProductGroup       `json:"inverse_futures"`
	UDPSender             *UDPSenderConfig    `json:"udp_sender"`
}

// ProductGroup lists the symbols and per-message-type SHM region names
// for one product type within a connection.
type ProductGroup struct {
	Symbols      []string       `json:"symbols"`
	Scale        ScaleSpec      `json:"scale"`
	BboShmName   string         `json:"bbo_shm_name"`
	TradeShmName string         `json:"trade_shm_name"`
	AggShmName   string         `json:"agg_trade_shm_name"`
	DepthShmName string         `json:"depth5_shm_name"`
}

// ScaleSpec declares the uniform fixed-point scale for a symbol group,
// grounded on the teacher's schema.ScaleSpec validation pattern.
type ScaleSpec struct {
	PriceScale int `json:"price_scale"`
	QtyScale   int `json:"qty_scale"`
}

// UDPSenderConfig enables optional UDP fan-out per connection.
type UDPSenderConfig struct {
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	Enabled bool   `json:"enabled"`
}

// Defaults applied when a connection config omits tunables.
const (
	DefaultRotationWindowSeconds = 60
	DefaultRotationFloorRatio    = 0.05
)

// Load reads and validates a config file, applying defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if err := f.resolveAndValidate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) resolveAndValidate() error {
	if f.Application.LogLevel == "" {
		f.Application.LogLevel = "info"
	}
	for i := range f.Connections {
		c := &f.Connections[i]
		if c.Exchange == "" {
			return mderrors.ErrConfigMissingExchange
		}
		switch c.Exchange {
		case "binance", "okx", "bitget", "bybit", "udp":
		default:
			return mderrors.ErrConfigUnknownExchange
		}
		if c.MdSize == 0 || c.MdSize&(c.MdSize-1) != 0 {
			return mderrors.ErrConfigBadMdSize
		}
		if c.Redundancy < 0 {
			return mderrors.ErrConfigBadRedundancy
		}
		if c.Redundancy == 0 {
			c.Redundancy = 1
		}
		if c.RotationWindowSeconds <= 0 {
			c.RotationWindowSeconds = DefaultRotationWindowSeconds
		}
		if c.RotationFloorRatio <= 0 {
			c.RotationFloorRatio = DefaultRotationFloorRatio
		}
	}
	return nil
}
