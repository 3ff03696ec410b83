package replay

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
	"github.com/sieniven/xlayer-replay/kafka"
	"github.com/sieniven/xlayer-replay/simulate"
)

type ReplayConfig struct {
	Enable            bool              `toml:",omitempty"`
	RPCURL            string            `toml:",omitempty"`
	PrivateKey        string            `toml:",omitempty"`
	SignerAddress     string            `toml:",omitempty"`
	ContractOverride  string            `toml:",omitempty"`
	Rewind            bool              `toml:",omitempty"`
	Workers           int               `toml:",omitempty"`
	TxCacheSize       int               `toml:",omitempty"`
	PlanCacheSize     int               `toml:",omitempty"`
	RPCRetries        uint64            `toml:",omitempty"`
	RPCRetryInterval  Duration          `toml:",omitempty"`
	RPCRateLimit      float64           `toml:",omitempty"`
	RPCRateBurst      int               `toml:",omitempty"`
	SimulationTimeout Duration          `toml:",omitempty"`
	MaxSkippedRatio   float64           `toml:",omitempty"`
	HTTPAddr          string            `toml:",omitempty"`
	MetricsAddr       string            `toml:",omitempty"`
	Kafka             kafka.KafkaConfig `toml:",omitempty"`
}

var DefaultConfig = ReplayConfig{
	Enable:            true,
	RPCURL:            "http://127.0.0.1:8545",
	Workers:           4,
	TxCacheSize:       4096,
	PlanCacheSize:     1024,
	RPCRetries:        3,
	RPCRetryInterval:  Duration(200 * time.Millisecond),
	SimulationTimeout: Duration(30 * time.Second),
	HTTPAddr:          "127.0.0.1:8650",
	Kafka: kafka.KafkaConfig{
		RequestTopic: "xlayer-replay-request",
		PlanTopic:    "xlayer-replay-plan",
		ErrorTopic:   "xlayer-replay-error",
		ClientID:     "xlayer-replay",
		GroupID:      "xlayer-replay-1",
	},
}

var ErrInvalidConfig = errors.New("invalid replay config")

// Field names in the file match the Go struct field names.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (*ReplayConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig
	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (cfg *ReplayConfig) Validate() error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("%w: missing RPCURL", ErrInvalidConfig)
	}
	if cfg.PrivateKey == "" && cfg.SignerAddress == "" {
		return fmt.Errorf("%w: one of PrivateKey or SignerAddress is required", ErrInvalidConfig)
	}
	if cfg.ContractOverride != "" && !libcommon.IsHexAddress(cfg.ContractOverride) {
		return fmt.Errorf("%w: ContractOverride %q is not an address", ErrInvalidConfig, cfg.ContractOverride)
	}
	if cfg.MaxSkippedRatio < 0 || cfg.MaxSkippedRatio > 1 {
		return fmt.Errorf("%w: MaxSkippedRatio %v out of range [0, 1]", ErrInvalidConfig, cfg.MaxSkippedRatio)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w: Workers must be positive", ErrInvalidConfig)
	}
	return nil
}

func (cfg *ReplayConfig) SimulateConfig() simulate.SimulateConfig {
	simCfg := simulate.SimulateConfig{MaxSkippedRatio: cfg.MaxSkippedRatio}
	if cfg.ContractOverride != "" {
		contract := libcommon.HexToAddress(cfg.ContractOverride)
		simCfg.ContractOverride = &contract
	}
	return simCfg
}

// Duration is a time.Duration written as a string such as "30s" in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
