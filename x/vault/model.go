package vault

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Deposit{}, migration.NoModification)
	migration.MustRegister(1, &VaultState{}, migration.NoModification)
}

var _ orm.Model = (*Deposit)(nil)

func (m *Deposit) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "Depositor", m.Depositor.Validate())
	if err := m.Amount.Validate(); err != nil {
		errs = errors.AppendField(errs, "Amount", err)
	} else if !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	errs = errors.AppendField(errs, "UnlockAt", m.UnlockAt.Validate())
	if m.UnlockAt == 0 {
		errs = errors.AppendField(errs, "UnlockAt", errors.ErrEmpty)
	}
	if m.AssetID == 0 {
		errs = errors.AppendField(errs, "AssetID", errors.ErrEmpty)
	}
	if m.DestinationChain == 0 {
		errs = errors.AppendField(errs, "DestinationChain", errors.ErrEmpty)
	}
	return errs
}

// NewDepositBucket returns a bucket for keeping deposits. Deposits are
// keyed by the depositor address, so an account can hold at most one
// active deposit.
func NewDepositBucket() orm.ModelBucket {
	b := orm.NewModelBucket("deposit", &Deposit{})
	return migration.NewModelBucket("vault", b)
}

var _ orm.Model = (*VaultState)(nil)

func (m *VaultState) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	for i, c := range m.TotalLocked {
		if err := c.Validate(); err != nil {
			errs = errors.AppendField(errs, "TotalLocked", errors.Wrapf(err, "coin %d", i))
		}
	}
	return errs
}

// stateKey is the only key the state bucket holds a value under.
var stateKey = []byte("state")

// NewStateBucket returns a bucket for keeping the vault state singleton.
func NewStateBucket() orm.ModelBucket {
	b := orm.NewModelBucket("vltstate", &VaultState{})
	return migration.NewModelBucket("vault", b)
}

// loadState returns the current vault state. Before the first write an
// empty state is returned.
func loadState(db weave.KVStore, b orm.ModelBucket) (*VaultState, error) {
	var state VaultState
	switch err := b.One(db, stateKey, &state); {
	case err == nil:
		return &state, nil
	case errors.ErrNotFound.Is(err):
		return &VaultState{Metadata: &weave.Metadata{Schema: 1}}, nil
	default:
		return nil, errors.Wrap(err, "load vault state")
	}
}

func saveState(db weave.KVStore, b orm.ModelBucket, state *VaultState) error {
	if _, err := b.Put(db, stateKey, state); err != nil {
		return errors.Wrap(err, "store vault state")
	}
	return nil
}
