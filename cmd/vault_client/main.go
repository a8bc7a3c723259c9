package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/api/oraclehandler"
	"github.com/ruteri/entropy-vault/api/storehandler"
	"github.com/ruteri/entropy-vault/cmd/flags"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/urfave/cli/v2"
)

var flagRequestID *cli.StringFlag = &cli.StringFlag{
	Name:  "request-id",
	Usage: "Entropy request id, 0x-prefixed hex",
}
var flagKey *cli.Uint64Flag = &cli.Uint64Flag{
	Name:     "key",
	Required: true,
	Usage:    "Value store key",
}
var flagTimeout *cli.DurationFlag = &cli.DurationFlag{
	Name:  "timeout",
	Value: 2 * time.Minute,
	Usage: "How long to wait for fulfillment",
}

func main() {
	app := &cli.App{
		Name:  "vault client",
		Usage: "Request entropy and store encrypted values",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.KeyFileFlag,
		},
		Commands: []*cli.Command{
			&cli.Command{
				Name:  "fee",
				Usage: "Print the current minimum fee",
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}
					fee, err := c.oracle.GetFee(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Println(fee)
					return nil
				},
			},
			&cli.Command{
				Name:  "request",
				Usage: "Request entropy; prints the request id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tag",
						Usage: "Label hashed into the request tag",
					},
					&cli.StringFlag{
						Name:  "fee",
						Usage: "Fee to pay in wei; defaults to the current minimum",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Wait for fulfillment and print the value",
					},
					flagTimeout,
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}

					fee, err := feeToPay(cCtx.Context, c.oracle, cCtx.String("fee"))
					if err != nil {
						return err
					}

					var tag interfaces.Tag
					if label := cCtx.String("tag"); label != "" {
						tag = interfaces.Tag(crypto.Keccak256Hash([]byte(label)))
					}

					id, err := c.oracle.RequestEntropy(cCtx.Context, tag, fee)
					if err != nil {
						return err
					}
					fmt.Println(id.String())

					if !cCtx.Bool("wait") {
						return nil
					}
					return waitAndPrint(cCtx, c.oracle, id)
				},
			},
			&cli.Command{
				Name:  "wait",
				Usage: "Wait for a request to be fulfilled and print its value",
				Flags: []cli.Flag{
					flagRequestID,
					flagTimeout,
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}
					id, err := interfaces.NewRequestIDFromHex(cCtx.String(flagRequestID.Name))
					if err != nil {
						return err
					}
					return waitAndPrint(cCtx, c.oracle, id)
				},
			},
			&cli.Command{
				Name:  "status",
				Usage: "Show an entropy request",
				Flags: []cli.Flag{
					flagRequestID,
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}
					id, err := interfaces.NewRequestIDFromHex(cCtx.String(flagRequestID.Name))
					if err != nil {
						return err
					}
					req, err := c.oracle.GetRequest(cCtx.Context, id)
					if err != nil {
						return err
					}
					return printJSON(req)
				},
			},
			&cli.Command{
				Name:  "pending",
				Usage: "List requests awaiting fulfillment",
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}
					pending, err := c.oracle.PendingRequests(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(pending)
				},
			},
			&cli.Command{
				Name:  "store",
				Usage: "Encrypt a value and store it under a key",
				Flags: []cli.Flag{
					flagKey,
					flagRequestID,
					flags.NetworkPubkeyFlag,
					flags.CoprocessorKeyFlag,
					&cli.Uint64Flag{
						Name:     "value",
						Required: true,
						Usage:    "Value to encrypt",
					},
					&cli.StringFlag{
						Name:     "allowed-user",
						Required: true,
						Usage:    "Address allowed to decrypt the value",
					},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}
					if c.key == nil {
						return fmt.Errorf("--%s is required", flags.KeyFileFlag.Name)
					}

					builder, err := flags.InputBuilder(cCtx)
					if err != nil {
						return err
					}

					allowedUser, err := interfaces.NewIdentityFromHex(cCtx.String("allowed-user"))
					if err != nil {
						return err
					}

					var requestID *interfaces.RequestID
					if s := cCtx.String(flagRequestID.Name); s != "" {
						id, err := interfaces.NewRequestIDFromHex(s)
						if err != nil {
							return err
						}
						requestID = &id
					}

					info, err := c.store.Info(cCtx.Context)
					if err != nil {
						return err
					}

					caller := interfaces.Identity(crypto.PubkeyToAddress(c.key.PublicKey))
					input, err := builder.EncryptUint64(info.Address, caller, cCtx.Uint64("value"))
					if err != nil {
						return err
					}

					return c.store.Store(cCtx.Context, cCtx.Uint64(flagKey.Name), input, allowedUser, requestID)
				},
			},
			&cli.Command{
				Name:  "get",
				Usage: "Show the encrypted value stored under a key",
				Flags: []cli.Flag{
					flagKey,
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}
					value, err := c.store.GetValue(cCtx.Context, cCtx.Uint64(flagKey.Name))
					if err != nil {
						return err
					}
					return printJSON(value)
				},
			},
			&cli.Command{
				Name:  "allowed",
				Usage: "Check whether a user may decrypt a key",
				Flags: []cli.Flag{
					flagKey,
					&cli.StringFlag{
						Name:     "user",
						Required: true,
					},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClients(cCtx)
					if err != nil {
						return err
					}
					user, err := interfaces.NewIdentityFromHex(cCtx.String("user"))
					if err != nil {
						return err
					}
					allowed, err := c.store.IsAllowed(cCtx.Context, cCtx.Uint64(flagKey.Name), user)
					if err != nil {
						return err
					}
					fmt.Println(allowed)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type clients struct {
	oracle *oraclehandler.Client
	store  *storehandler.Client
	key    *ecdsa.PrivateKey
}

func newClients(cCtx *cli.Context) (*clients, error) {
	key, err := flags.LoadKey(cCtx, flags.KeyFileFlag.Name)
	if err != nil {
		return nil, err
	}
	base := api.NewClient(cCtx.String(flags.ServerAddrFlag.Name), key)
	return &clients{
		oracle: oraclehandler.NewClient(base),
		store:  storehandler.NewClient(base),
		key:    key,
	}, nil
}

type feeReader interface {
	GetFee(ctx context.Context) (*big.Int, error)
}

// feeToPay parses an explicit fee, or falls back to the oracle's minimum.
func feeToPay(ctx context.Context, oracle feeReader, explicit string) (*big.Int, error) {
	if explicit == "" {
		return oracle.GetFee(ctx)
	}
	fee, ok := new(big.Int).SetString(explicit, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("invalid fee: %q", explicit)
	}
	return fee, nil
}

func waitAndPrint(cCtx *cli.Context, oracle *oraclehandler.Client, id interfaces.RequestID) error {
	ctx, cancel := context.WithTimeout(cCtx.Context, cCtx.Duration(flagTimeout.Name))
	defer cancel()

	value, err := oracle.WaitForFulfillment(ctx, id, time.Second)
	if err != nil {
		return fmt.Errorf("request %s not fulfilled: %w", id, err)
	}
	fmt.Printf("0x%x\n", []byte(value))
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
