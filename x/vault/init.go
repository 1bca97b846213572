package vault

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
)

// Initializer fulfils the Initializer interface to load data from the
// genesis file
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse the vault configuration from genesis and seed an
// empty vault state.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, db weave.KVStore) error {
	conf := Configuration{
		Metadata: &weave.Metadata{Schema: 1},
	}
	switch err := gconf.InitConfig(db, opts, "vault", &conf); {
	default:
		// All good.
	case errors.ErrNotFound.Is(err):
		return nil
	case err != nil:
		return errors.Wrap(err, "cannot initialize gconf based configuration")
	}

	state := VaultState{
		Metadata: &weave.Metadata{Schema: 1},
	}
	return saveState(db, NewStateBucket(), &state)
}
