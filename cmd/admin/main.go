package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/api/oraclehandler"
	"github.com/ruteri/entropy-vault/api/seedhandler"
	"github.com/ruteri/entropy-vault/cmd/flags"
	"github.com/ruteri/entropy-vault/cryptoutils"
	"github.com/ruteri/entropy-vault/entropy"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/urfave/cli/v2"
)

var flagNetworkPrivkey *cli.StringFlag = &cli.StringFlag{
	Name:  "network-privkey-file",
	Value: "network-private.pem",
	Usage: "Path to write the network private key to",
}
var flagSharesDir *cli.StringFlag = &cli.StringFlag{
	Name:  "shares-dir",
	Value: "seed-shares",
	Usage: "Directory seed shares are written to",
}
var flagShareFiles *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "share-file",
	Usage: "Seed share file (repeatable); at least threshold shares are needed",
}
var flagShamirThreshold *cli.IntFlag = &cli.IntFlag{
	Name:  "shamir-threshold",
	Value: 2,
}
var flagShamirTotal *cli.IntFlag = &cli.IntFlag{
	Name:  "shamir-total-shares",
	Value: 3,
}

func main() {
	app := &cli.App{
		Name:           "admin client",
		Usage:          "Manage the entropy engine seed and the oracle fee",
		DefaultCommand: "status",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
		},
		Commands: []*cli.Command{
			&cli.Command{
				Name:  "status",
				Usage: "Show seed status and current fee",
				Action: func(cCtx *cli.Context) error {
					base := api.NewClient(cCtx.String(flags.ServerAddrFlag.Name), nil)

					status, err := seedhandler.NewClient(base).Status(cCtx.Context)
					if err != nil {
						return err
					}
					fee, err := oraclehandler.NewClient(base).GetFee(cCtx.Context)
					if err != nil {
						return err
					}

					fmt.Printf("engine: %s\nseed initialized: %t\nfee: %s\n", status.Address, status.Initialized, fee)
					return nil
				},
			},
			&cli.Command{
				Name:  "generate-key",
				Usage: "Generate a secp256k1 key for signing requests or input proofs",
				Flags: []cli.Flag{
					flags.KeyFileFlag,
				},
				Action: func(cCtx *cli.Context) error {
					path := cCtx.String(flags.KeyFileFlag.Name)
					if path == "" {
						return fmt.Errorf("--%s is required", flags.KeyFileFlag.Name)
					}

					key, err := crypto.GenerateKey()
					if err != nil {
						return fmt.Errorf("failed to generate key: %w", err)
					}
					if err := crypto.SaveECDSA(path, key); err != nil {
						return err
					}

					fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
					return nil
				},
			},
			&cli.Command{
				Name:  "generate-network-key",
				Usage: "Generate the network keypair inputs are encrypted to",
				Flags: []cli.Flag{
					flags.NetworkPubkeyFlag,
					flagNetworkPrivkey,
				},
				Action: func(cCtx *cli.Context) error {
					pub, priv, err := cryptoutils.RandomNetworkKeypair()
					if err != nil {
						return err
					}
					if err := os.WriteFile(cCtx.String(flagNetworkPrivkey.Name), priv, 0600); err != nil {
						return err
					}
					return os.WriteFile(cCtx.String(flags.NetworkPubkeyFlag.Name), pub, 0644)
				},
			},
			&cli.Command{
				Name:  "split-seed",
				Usage: "Generate a master seed and split it into escrow shares",
				Flags: []cli.Flag{
					flagSharesDir,
					flagShamirTotal,
					flagShamirThreshold,
				},
				Action: func(cCtx *cli.Context) error {
					seed, err := entropy.GenerateSeed()
					if err != nil {
						return err
					}

					shares, err := entropy.SplitSeed(seed, cCtx.Int(flagShamirTotal.Name), cCtx.Int(flagShamirThreshold.Name))
					if err != nil {
						return err
					}

					dir := cCtx.String(flagSharesDir.Name)
					if err := os.MkdirAll(dir, 0700); err != nil {
						return err
					}
					for i, share := range shares {
						path := filepath.Join(dir, fmt.Sprintf("share-%d.hex", i+1))
						if err := os.WriteFile(path, []byte(hexutil.Encode(share)), 0600); err != nil {
							return err
						}
						fmt.Println(path)
					}
					return nil
				},
			},
			&cli.Command{
				Name:  "init-seed",
				Usage: "Reconstruct the seed from shares and submit it to the engine",
				Flags: []cli.Flag{
					flags.KeyFileFlag,
					flags.NetworkPubkeyFlag,
					flags.CoprocessorKeyFlag,
					flagShareFiles,
				},
				Action: func(cCtx *cli.Context) error {
					adminKey, err := flags.LoadKey(cCtx, flags.KeyFileFlag.Name)
					if err != nil {
						return err
					}
					if adminKey == nil {
						return fmt.Errorf("--%s is required", flags.KeyFileFlag.Name)
					}

					builder, err := flags.InputBuilder(cCtx)
					if err != nil {
						return err
					}

					seed, err := combineShareFiles(cCtx.StringSlice(flagShareFiles.Name))
					if err != nil {
						return err
					}

					client := seedhandler.NewClient(api.NewClient(cCtx.String(flags.ServerAddrFlag.Name), adminKey))
					return initSeed(cCtx.Context, client, builder, adminKey, seed)
				},
			},
			&cli.Command{
				Name:  "set-fee",
				Usage: "Set the minimum entropy request fee",
				Flags: []cli.Flag{
					flags.KeyFileFlag,
					&cli.StringFlag{
						Name:     "fee",
						Required: true,
						Usage:    "New minimum fee in wei",
					},
				},
				Action: func(cCtx *cli.Context) error {
					adminKey, err := flags.LoadKey(cCtx, flags.KeyFileFlag.Name)
					if err != nil {
						return err
					}

					fee, ok := new(big.Int).SetString(cCtx.String("fee"), 10)
					if !ok {
						return fmt.Errorf("invalid fee: %q", cCtx.String("fee"))
					}

					client := oraclehandler.NewClient(api.NewClient(cCtx.String(flags.ServerAddrFlag.Name), adminKey))
					return client.SetFee(cCtx.Context, fee)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func combineShareFiles(paths []string) ([]byte, error) {
	shares := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		share, err := hexutil.Decode(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid share in %s: %w", path, err)
		}
		shares = append(shares, share)
	}
	return entropy.CombineSeed(shares)
}

type seedInitializer interface {
	Status(ctx context.Context) (*api.SeedStatusResponse, error)
	InitializeSeed(ctx context.Context, input interfaces.EncryptedInput) error
}

// initSeed encrypts seed to the engine the server reports and submits it.
func initSeed(ctx context.Context, client seedInitializer, builder inputEncrypter, adminKey *ecdsa.PrivateKey, seed []byte) error {
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	if status.Initialized {
		return interfaces.ErrAlreadyInitialized
	}

	admin := interfaces.Identity(crypto.PubkeyToAddress(adminKey.PublicKey))
	input, err := builder.EncryptBytes(status.Address, admin, seed)
	if err != nil {
		return err
	}
	return client.InitializeSeed(ctx, input)
}

type inputEncrypter interface {
	EncryptBytes(contract, caller interfaces.Identity, data []byte) (interfaces.EncryptedInput, error)
}
