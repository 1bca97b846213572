package app

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/aeither/crosschainvestingvault/x/assets"
	"github.com/aeither/crosschainvestingvault/x/vault"
	"github.com/aeither/crosschainvestingvault/xcm"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/commands/server"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x/cash"
	abci "github.com/tendermint/tendermint/abci/types"
)

// GenInitOptions will produce some basic options for one rich
// account, to use for dev mode
//
// You can set
func GenInitOptions(args []string) (json.RawMessage, error) {
	ticker := "DOT"
	if len(args) > 0 {
		ticker = args[0]
	}

	var addr string
	if len(args) > 1 {
		addr = args[1]
	} else {
		// if no address provided, auto-generate one
		// and print out a recovery phrase
		bz, phrase, err := GenerateCoinKey()
		if err != nil {
			return nil, err
		}
		addr = bz.String()
		fmt.Println(phrase)
	}

	type (
		dict  map[string]interface{}
		array []interface{}
	)
	collectorAddr, err := hex.DecodeString("3b11c732b8fc1f09beb34031302fe2ab347c5c14")
	if err != nil {
		return nil, errors.Wrap(err, "cannot hex decode collector address")
	}
	bridgeAddr, err := hex.DecodeString("fa1c1f0f2f79b76c49f66902b4bb669b83a9b7e9")
	if err != nil {
		return nil, errors.Wrap(err, "cannot hex decode bridge address")
	}
	return json.Marshal(dict{
		"cash": array{
			dict{
				"address": addr,
				"coins": array{
					dict{
						"whole":  123456789,
						"ticker": ticker,
					},
				},
			},
		},
		"assets": array{
			dict{"ticker": "DOT", "asset_id": 1, "name": "Polkadot"},
			dict{"ticker": "USDT", "asset_id": 2, "name": "Tether USD"},
		},
		"conf": dict{
			"cash": cash.Configuration{
				CollectorAddress: collectorAddr,
				MinimalFee:       coin.Coin{Whole: 0}, // no fee
			},
			"vault": dict{
				"admin":             addr,
				"bridge":            weave.Address(bridgeAddr),
				"min_lock_duration": 60000,
			},
			"migration": dict{
				"admin": addr,
			},
		},
		"initialize_schema": []dict{
			{"pkg": "cash", "ver": 1},
			{"pkg": "sigs", "ver": 1},
			{"pkg": "utils", "ver": 1},
			{"pkg": "vault", "ver": 1},
			{"pkg": "assets", "ver": 1},
		},
	})
}

// GenerateApp is used to create a stub for server/start.go command
func GenerateApp(options *server.Options) (abci.Application, error) {
	// db goes in a subdir, but "" -> "" for memdb
	var dbPath string
	if options.Home != "" {
		dbPath = filepath.Join(options.Home, "abci.db")
	}

	stack := Stack(xcm.NewMemoryRelay())
	application, err := Application("vaultd", stack, TxDecoder, dbPath, options.Debug)
	if err != nil {
		return nil, err
	}
	application.WithInit(app.ChainInitializers(
		&migration.Initializer{},
		&cash.Initializer{},
		&assets.Initializer{},
		&vault.Initializer{},
	))

	// set the logger and return
	application.WithLogger(options.Logger)
	return application, nil
}

// GenerateCoinKey returns the address of a public key,
// along with the secret phrase to recover the private key.
// You can give coins to this address and return the recovery
// phrase to the user to access them.
func GenerateCoinKey() (weave.Address, string, error) {
	privKey := crypto.GenPrivKeyEd25519()
	addr := privKey.PublicKey().Address()
	return addr, "TODO: add a recovery phrase", nil
}
