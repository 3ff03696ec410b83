package main

import (
	replay "github.com/sieniven/xlayer-replay"
	"github.com/urfave/cli/v2"
)

var (
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	RPCURLFlag = cli.StringFlag{
		Name:  "rpc",
		Usage: "Node RPC endpoint serving eth_getTransactionByHash and trace_call",
	}
	PrivateKeyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "Hex private key of the replay signer",
	}
	SignerFlag = cli.StringFlag{
		Name:  "signer",
		Usage: "Replay signer address, used when no private key is given",
	}
	ContractFlag = cli.StringFlag{
		Name:  "contract",
		Usage: "Address substituted for the original sender in calldata (defaults to the signer)",
	}
	RewindFlag = cli.BoolFlag{
		Name:  "rewind",
		Usage: "Trace mined transactions at the parent block",
	}
	MaxSkippedRatioFlag = cli.Float64Flag{
		Name:  "max-skipped-ratio",
		Usage: "Reject plans whose skipped entry ratio exceeds this value (0 disables)",
	}
	WorkersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "Number of concurrent simulations",
	}
	OutFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Write the replay plan to this JSON file instead of stdout",
	}
	HTTPAddrFlag = cli.StringFlag{
		Name:  "http.addr",
		Usage: "Listen address of the replay JSON-RPC server",
	}
	MetricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Listen address of the prometheus metrics server (empty disables)",
	}
	VerbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
)

var commonFlags = []cli.Flag{
	&ConfigFlag,
	&RPCURLFlag,
	&PrivateKeyFlag,
	&SignerFlag,
	&ContractFlag,
	&RewindFlag,
	&MaxSkippedRatioFlag,
	&WorkersFlag,
	&MetricsAddrFlag,
	&VerbosityFlag,
}

// loadConfig reads the config file, if any, and applies explicitly set flags
// on top of it.
func loadConfig(cliCtx *cli.Context) (*replay.ReplayConfig, error) {
	cfg := replay.DefaultConfig
	if path := cliCtx.String(ConfigFlag.Name); path != "" {
		loaded, err := replay.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if cliCtx.IsSet(RPCURLFlag.Name) {
		cfg.RPCURL = cliCtx.String(RPCURLFlag.Name)
	}
	if cliCtx.IsSet(PrivateKeyFlag.Name) {
		cfg.PrivateKey = cliCtx.String(PrivateKeyFlag.Name)
	}
	if cliCtx.IsSet(SignerFlag.Name) {
		cfg.SignerAddress = cliCtx.String(SignerFlag.Name)
	}
	if cliCtx.IsSet(ContractFlag.Name) {
		cfg.ContractOverride = cliCtx.String(ContractFlag.Name)
	}
	if cliCtx.IsSet(RewindFlag.Name) {
		cfg.Rewind = cliCtx.Bool(RewindFlag.Name)
	}
	if cliCtx.IsSet(MaxSkippedRatioFlag.Name) {
		cfg.MaxSkippedRatio = cliCtx.Float64(MaxSkippedRatioFlag.Name)
	}
	if cliCtx.IsSet(WorkersFlag.Name) {
		cfg.Workers = cliCtx.Int(WorkersFlag.Name)
	}
	if cliCtx.IsSet(HTTPAddrFlag.Name) {
		cfg.HTTPAddr = cliCtx.String(HTTPAddrFlag.Name)
	}
	if cliCtx.IsSet(MetricsAddrFlag.Name) {
		cfg.MetricsAddr = cliCtx.String(MetricsAddrFlag.Name)
	}
	return &cfg, nil
}
