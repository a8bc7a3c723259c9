package flags

import (
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/common"
	"github.com/ruteri/entropy-vault/coprocessor"
	"github.com/ruteri/entropy-vault/cryptoutils"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second
	maxSignatureAge := time.Duration(cCtx.Int64(SignatureAgeFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxSignatureAge:          maxSignatureAge,
	}
}

// LoadKey reads a hex-encoded secp256k1 private key from the file named by
// flagName. An unset flag yields a nil key.
func LoadKey(cCtx *cli.Context, flagName string) (*ecdsa.PrivateKey, error) {
	path := cCtx.String(flagName)
	if path == "" {
		return nil, nil
	}
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("could not load key from %s: %w", path, err)
	}
	return key, nil
}

var ServerAddrFlag = &cli.StringFlag{
	Name:  "server-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "entropy vault server to talk to",
}

var KeyFileFlag = &cli.StringFlag{
	Name:  "key-file",
	Usage: "file with the hex-encoded secp256k1 key signing requests",
}

var NetworkPubkeyFlag = &cli.StringFlag{
	Name:  "network-pubkey-file",
	Value: "network-public.pem",
	Usage: "PEM file with the network public key inputs are encrypted to",
}

var CoprocessorKeyFlag = &cli.StringFlag{
	Name:  "coprocessor-key-file",
	Usage: "file with the hex-encoded key the coprocessor signs input proofs with",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var SignatureAgeFlag = &cli.Int64Flag{
	Name:  "max-signature-age",
	Value: 300,
	Usage: "seconds of clock skew accepted on signed requests",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	SignatureAgeFlag,
}

// InputBuilder creates an input builder from NetworkPubkeyFlag and
// CoprocessorKeyFlag.
func InputBuilder(cCtx *cli.Context) (*coprocessor.InputBuilder, error) {
	pubPEM, err := os.ReadFile(cCtx.String(NetworkPubkeyFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not read network pubkey: %w", err)
	}
	pub, err := cryptoutils.NewNetworkPubkey(pubPEM)
	if err != nil {
		return nil, err
	}

	signer, err := LoadKey(cCtx, CoprocessorKeyFlag.Name)
	if err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, fmt.Errorf("--%s is required", CoprocessorKeyFlag.Name)
	}
	return coprocessor.NewInputBuilder(pub, signer)
}
