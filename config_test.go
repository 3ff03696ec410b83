package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
RPCURL = "http://node:8545"
SignerAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
ContractOverride = "0x2222222222222222222222222222222222222222"
Rewind = true
Workers = 8
RPCRetryInterval = "500ms"
SimulationTimeout = "1m"
MaxSkippedRatio = 0.5

[Kafka]
BootstrapServers = ["kafka-1:9092", "kafka-2:9092"]
RequestTopic = "requests"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://node:8545", cfg.RPCURL)
	assert.True(t, cfg.Rewind)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.RPCRetryInterval.Std())
	assert.Equal(t, time.Minute, cfg.SimulationTimeout.Std())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.BootstrapServers)
	assert.Equal(t, "requests", cfg.Kafka.RequestTopic)

	// Unset fields keep their defaults
	assert.Equal(t, DefaultConfig.TxCacheSize, cfg.TxCacheSize)
	assert.Equal(t, DefaultConfig.Kafka.PlanTopic, cfg.Kafka.PlanTopic)

	simCfg := cfg.SimulateConfig()
	require.NotNil(t, simCfg.ContractOverride)
	assert.Equal(t, libcommon.HexToAddress("0x2222222222222222222222222222222222222222"), *simCfg.ContractOverride)
	assert.Equal(t, 0.5, simCfg.MaxSkippedRatio)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `UnknownField = 1`))
	assert.ErrorContains(t, err, "UnknownField")

	_, err = LoadConfig(writeConfig(t, `RPCRetryInterval = "soon"`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig
	valid.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	require.NoError(t, valid.Validate())
	assert.Nil(t, valid.SimulateConfig().ContractOverride)

	for name, mutate := range map[string]func(cfg *ReplayConfig){
		"NoRPC":         func(cfg *ReplayConfig) { cfg.RPCURL = "" },
		"NoIdentity":    func(cfg *ReplayConfig) { cfg.PrivateKey = "" },
		"BadContract":   func(cfg *ReplayConfig) { cfg.ContractOverride = "0x1234" },
		"NegativeRatio": func(cfg *ReplayConfig) { cfg.MaxSkippedRatio = -0.1 },
		"RatioAboveOne": func(cfg *ReplayConfig) { cfg.MaxSkippedRatio = 1.5 },
		"NoWorkers":     func(cfg *ReplayConfig) { cfg.Workers = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1h30m")))
	assert.Equal(t, 90*time.Minute, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("90")))
}
