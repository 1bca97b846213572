package vault

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestDepositValidate(t *testing.T) {
	cases := map[string]struct {
		model    Deposit
		wantErrs map[string]*errors.Error
	}{
		"valid model": {
			model: Deposit{
				Metadata:         &weave.Metadata{Schema: 1},
				Depositor:        weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(100, 0, "DOT"),
				UnlockAt:         1600060000,
				AssetID:          1,
				DestinationChain: 2000,
				CreatedAt:        1600000000,
			},
			wantErrs: map[string]*errors.Error{
				"Metadata":         nil,
				"Depositor":        nil,
				"Amount":           nil,
				"UnlockAt":         nil,
				"AssetID":          nil,
				"DestinationChain": nil,
			},
		},
		"missing metadata": {
			model: Deposit{
				Depositor:        weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(100, 0, "DOT"),
				UnlockAt:         1600060000,
				AssetID:          1,
				DestinationChain: 2000,
			},
			wantErrs: map[string]*errors.Error{
				"Metadata": errors.ErrMetadata,
			},
		},
		"missing depositor": {
			model: Deposit{
				Metadata:         &weave.Metadata{Schema: 1},
				Amount:           coin.NewCoin(100, 0, "DOT"),
				UnlockAt:         1600060000,
				AssetID:          1,
				DestinationChain: 2000,
			},
			wantErrs: map[string]*errors.Error{
				"Depositor": errors.ErrEmpty,
			},
		},
		"zero amount": {
			model: Deposit{
				Metadata:         &weave.Metadata{Schema: 1},
				Depositor:        weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(0, 0, "DOT"),
				UnlockAt:         1600060000,
				AssetID:          1,
				DestinationChain: 2000,
			},
			wantErrs: map[string]*errors.Error{
				"Amount": errors.ErrAmount,
			},
		},
		"missing unlock time": {
			model: Deposit{
				Metadata:         &weave.Metadata{Schema: 1},
				Depositor:        weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(100, 0, "DOT"),
				AssetID:          1,
				DestinationChain: 2000,
			},
			wantErrs: map[string]*errors.Error{
				"UnlockAt": errors.ErrEmpty,
			},
		},
		"missing asset id": {
			model: Deposit{
				Metadata:         &weave.Metadata{Schema: 1},
				Depositor:        weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(100, 0, "DOT"),
				UnlockAt:         1600060000,
				DestinationChain: 2000,
			},
			wantErrs: map[string]*errors.Error{
				"AssetID": errors.ErrEmpty,
			},
		},
		"missing destination chain": {
			model: Deposit{
				Metadata:  &weave.Metadata{Schema: 1},
				Depositor: weavetest.NewCondition().Address(),
				Amount:    coin.NewCoin(100, 0, "DOT"),
				UnlockAt:  1600060000,
				AssetID:   1,
			},
			wantErrs: map[string]*errors.Error{
				"DestinationChain": errors.ErrEmpty,
			},
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.model.Validate()
			for field, wantErr := range tc.wantErrs {
				assert.FieldError(t, err, field, wantErr)
			}
		})
	}
}

func TestVaultStateSingleton(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "vault")

	b := NewStateBucket()

	// Before the first write an empty state must be returned.
	state, err := loadState(db, b)
	assert.Nil(t, err)
	if state.EmergencyMode {
		t.Fatal("fresh state must not be in emergency mode")
	}
	if len(state.TotalLocked) != 0 {
		t.Fatalf("fresh state must hold no funds: %q", coin.Coins(state.TotalLocked))
	}

	state.EmergencyMode = true
	total, err := coin.Coins(state.TotalLocked).Add(coin.NewCoin(5, 0, "DOT"))
	assert.Nil(t, err)
	state.TotalLocked = total
	assert.Nil(t, saveState(db, b, state))

	restored, err := loadState(db, b)
	assert.Nil(t, err)
	if !restored.EmergencyMode {
		t.Fatal("emergency mode must persist")
	}
	if !coin.Coins(restored.TotalLocked).Contains(coin.NewCoin(5, 0, "DOT")) {
		t.Fatalf("unexpected total locked: %q", coin.Coins(restored.TotalLocked))
	}
}
