package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/entropy-vault/accessgate"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/api/oraclehandler"
	"github.com/ruteri/entropy-vault/api/seedhandler"
	"github.com/ruteri/entropy-vault/api/servers"
	"github.com/ruteri/entropy-vault/api/storehandler"
	"github.com/ruteri/entropy-vault/cmd/flags"
	"github.com/ruteri/entropy-vault/coprocessor"
	"github.com/ruteri/entropy-vault/entropy"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/ruteri/entropy-vault/oracle"
	"github.com/ruteri/entropy-vault/storage"
	"github.com/ruteri/entropy-vault/valuestore"
	"github.com/urfave/cli/v2"
)

var serverFlags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:  "engine-address",
		Value: "0x00000000000000000000000000000000000000e1",
		Usage: "identity of the entropy engine; seed inputs are bound to it",
	},
	&cli.StringFlag{
		Name:  "oracle-address",
		Value: "0x00000000000000000000000000000000000000e2",
		Usage: "identity of the entropy oracle; request ids are derived from it",
	},
	&cli.StringFlag{
		Name:  "store-address",
		Value: "0x00000000000000000000000000000000000000e3",
		Usage: "identity of the value store; value inputs are bound to it",
	},
	&cli.StringSliceFlag{
		Name:  "admin",
		Usage: "address holding the admin role (repeatable)",
	},
	&cli.StringSliceFlag{
		Name:  "fulfiller",
		Usage: "address holding the fulfiller role (repeatable)",
	},
	&cli.StringSliceFlag{
		Name:     "coprocessor-signer",
		Required: true,
		Usage:    "address whose input proofs are accepted (repeatable)",
	},
	&cli.StringFlag{
		Name:  "min-fee",
		Value: "0",
		Usage: "initial minimum fee for entropy requests, in wei",
	},
	&cli.StringFlag{
		Name:  "ledger-db",
		Usage: "sqlite file for the oracle ledger and the master seed; in-memory if empty",
	},
	&cli.StringFlag{
		Name:  "records-dir",
		Usage: "badger directory for value records; in-memory if empty",
	},
	&cli.StringSliceFlag{
		Name:  "payload-storage",
		Usage: "storage URI ciphertexts are offloaded to (repeatable, e.g. file:///var/lib/vault, s3://bucket/prefix?region=us-east-1)",
	},
	&cli.StringFlag{
		Name:  "fulfiller-identity",
		Usage: "if set, run the in-process fulfiller as this address (granted the fulfiller role)",
	},
}

func main() {
	app := &cli.App{
		Name:  "entropy-vault-server",
		Usage: "Serve the entropy oracle, the encrypted value store and the entropy engine",
		Flags: append(serverFlags, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			engineAddr, err := interfaces.NewIdentityFromHex(cCtx.String("engine-address"))
			if err != nil {
				return fmt.Errorf("invalid engine-address: %w", err)
			}
			oracleAddr, err := interfaces.NewIdentityFromHex(cCtx.String("oracle-address"))
			if err != nil {
				return fmt.Errorf("invalid oracle-address: %w", err)
			}
			storeAddr, err := interfaces.NewIdentityFromHex(cCtx.String("store-address"))
			if err != nil {
				return fmt.Errorf("invalid store-address: %w", err)
			}

			minFee, ok := new(big.Int).SetString(cCtx.String("min-fee"), 10)
			if !ok || minFee.Sign() < 0 {
				return fmt.Errorf("invalid min-fee: %q", cCtx.String("min-fee"))
			}

			// Roles
			admins, err := accessgate.ParseIdentities(cCtx.StringSlice("admin"))
			if err != nil {
				return fmt.Errorf("invalid admin: %w", err)
			}
			fulfillers, err := accessgate.ParseIdentities(cCtx.StringSlice("fulfiller"))
			if err != nil {
				return fmt.Errorf("invalid fulfiller: %w", err)
			}
			signers, err := accessgate.ParseIdentities(cCtx.StringSlice("coprocessor-signer"))
			if err != nil {
				return fmt.Errorf("invalid coprocessor-signer: %w", err)
			}
			if len(admins) == 0 {
				logger.Warn("No admins configured, the master seed and fee cannot be set")
			}

			roles := accessgate.NewStaticRoleTable().
				WithMembers(interfaces.RoleAdmin, admins...).
				WithMembers(interfaces.RoleFulfiller, fulfillers...)

			var fulfillerIdentity *interfaces.Identity
			if s := cCtx.String("fulfiller-identity"); s != "" {
				id, err := interfaces.NewIdentityFromHex(s)
				if err != nil {
					return fmt.Errorf("invalid fulfiller-identity: %w", err)
				}
				roles.Grant(interfaces.RoleFulfiller, id)
				fulfillerIdentity = &id
			}

			gate := accessgate.NewGate(roles, logger)
			verifier := coprocessor.NewSignedInputVerifier(signers, logger)

			// Oracle ledger
			var ledger oracle.Ledger
			var seedStore entropy.SeedStore
			if path := cCtx.String("ledger-db"); path != "" {
				logger.Info("Opening sqlite ledger", "path", path)
				sqlLedger, err := oracle.OpenSQLiteLedger(ctx, path)
				if err != nil {
					logger.Error("Failed to open ledger", "err", err)
					return err
				}
				ledger = sqlLedger
				seedStore = sqlLedger
			} else {
				logger.Warn("Using in-memory ledger, requests and the master seed are lost on restart")
				ledger = oracle.NewMemoryLedger()
			}
			defer ledger.Close()

			entropyOracle := oracle.NewOracle(oracleAddr, gate, ledger, minFee, logger)
			engine := entropy.NewEngine(engineAddr, gate, verifier, logger)
			if seedStore != nil {
				if err := engine.UseSeedStore(ctx, seedStore); err != nil {
					logger.Error("Failed to restore master seed", "err", err)
					return err
				}
			}

			// Value store
			records, err := valuestore.OpenBadgerBackend(cCtx.String("records-dir"))
			if err != nil {
				logger.Error("Failed to open records backend", "err", err)
				return err
			}

			var payloads interfaces.StorageBackend
			if uris := cCtx.StringSlice("payload-storage"); len(uris) > 0 {
				locations, err := storage.ParseLocations(uris)
				if err != nil {
					return err
				}
				payloads, err = storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
				if err != nil {
					logger.Error("Failed to create payload storage", "err", err)
					return err
				}
				logger.Info("Offloading payloads", "backend", payloads.Name())
			}

			store, err := valuestore.NewStore(valuestore.StoreConfig{
				Address:     storeAddr,
				Coprocessor: verifier,
				Oracle:      entropyOracle,
				Backend:     records,
				Payloads:    payloads,
				Log:         logger,
			})
			if err != nil {
				records.Close()
				return err
			}
			defer store.Close()

			// Fulfiller
			if fulfillerIdentity != nil {
				fulfiller := oracle.NewFulfiller(entropyOracle, engine, *fulfillerIdentity, logger)
				go func() {
					if err := fulfiller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Fulfiller stopped", "err", err)
					}
				}()
				logger.Info("In-process fulfiller started", "identity", fulfillerIdentity.String())
			}

			// HTTP server
			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))
			auth := api.NewAuthenticator(cfg.MaxSignatureAge, logger)

			server, err := servers.New(cfg,
				oraclehandler.NewHandler(entropyOracle, auth, logger),
				storehandler.NewHandler(store, auth, logger),
				seedhandler.NewHandler(engine, auth, logger),
			)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server",
				"oracle", oracleAddr.String(),
				"store", storeAddr.String(),
				"engine", engineAddr.String())
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			cancel()
			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
