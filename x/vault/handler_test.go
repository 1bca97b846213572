package vault

import (
	"context"
	"testing"
	"time"

	"github.com/aeither/crosschainvestingvault/x/assets"
	"github.com/aeither/crosschainvestingvault/xcm"
	weave "github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	coin "github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/cash"
)

func TestUseCases(t *testing.T) {
	type Request struct {
		Now         weave.UnixTime
		Conditions  []weave.Condition
		Tx          weave.Tx
		BlockHeight int64
		WantErr     *errors.Error
	}

	type AccountBalance struct {
		Wallet weave.Address
		Amount coin.Coin
	}

	var (
		adminCond  = weavetest.NewCondition()
		bridgeCond = weavetest.NewCondition()
		aliceCond  = weavetest.NewCondition()
		bobCond    = weavetest.NewCondition()

		now     = weave.UnixTime(1600000000)
		minLock = weave.AsUnixDuration(60000 * time.Second)
	)

	depositTx := func(depositor weave.Condition, amount coin.Coin, lock weave.UnixDuration) weave.Tx {
		return &weavetest.Tx{
			Msg: &DepositMsg{
				Metadata:         &weave.Metadata{Schema: 1},
				Depositor:        depositor.Address(),
				Amount:           amount,
				LockDuration:     lock,
				DestinationChain: 2000,
			},
		}
	}
	claimTx := func(depositor weave.Condition) weave.Tx {
		return &weavetest.Tx{
			Msg: &ClaimMsg{
				Metadata:  &weave.Metadata{Schema: 1},
				Depositor: depositor.Address(),
			},
		}
	}
	emergencyTx := func() weave.Tx {
		return &weavetest.Tx{
			Msg: &EmergencyUnlockMsg{
				Metadata: &weave.Metadata{Schema: 1},
			},
		}
	}

	cases := map[string]struct {
		Requests  []Request
		Funds     []AccountBalance
		AfterTest func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay)
	}{
		"anyone with enough funds can create a deposit": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(150, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay) {
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(50, 0, "DOT"))
				assertFunds(t, db, depositAccount(bobCond.Address()), coin.NewCoin(100, 0, "DOT"))

				var d Deposit
				if err := NewDepositBucket().One(db, bobCond.Address(), &d); err != nil {
					t.Fatalf("cannot get deposit: %s", err)
				}
				if d.UnlockAt != now.Add(minLock.Duration()) {
					t.Fatalf("invalid unlock time: %d", d.UnlockAt)
				}
				if d.AssetID != 1 {
					t.Fatalf("invalid asset id: %d", d.AssetID)
				}
				if d.CreatedAt != now {
					t.Fatalf("invalid created at time: %d", d.CreatedAt)
				}
				assertTotalLocked(t, db, coin.NewCoin(100, 0, "DOT"))
			},
		},
		"depositor signature is required in order to create a deposit": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(150, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{aliceCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     errors.ErrUnauthorized,
				},
			},
		},
		"deposit of an unregistered asset is rejected": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(150, 0, "BTC")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "BTC"), minLock),
					BlockHeight: 100,
					WantErr:     ErrAssetNotSupported,
				},
			},
		},
		"deposit lock must not be shorter than the configured minimum": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(150, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock-1),
					BlockHeight: 100,
					WantErr:     ErrLockTooShort,
				},
			},
		},
		"enough funds are required to create a deposit": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(10, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     errors.ErrAmount,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay) {
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(10, 0, "DOT"))
			},
		},
		"an account cannot hold two active deposits": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(300, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:         now + 1,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(50, 0, "DOT"), minLock),
					BlockHeight: 101,
					WantErr:     errors.ErrDuplicate,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay) {
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(200, 0, "DOT"))
				assertTotalLocked(t, db, coin.NewCoin(100, 0, "DOT"))
			},
		},
		"a deposit cannot be claimed before it unlocks": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(100, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:         now.Add(minLock.Duration()) - 1,
					Conditions:  []weave.Condition{bobCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 101,
					WantErr:     ErrStillLocked,
				},
				{
					Now:         now.Add(minLock.Duration()),
					Conditions:  []weave.Condition{bobCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 102,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay) {
				assertFunds(t, db, bridgeCond.Address(), coin.NewCoin(100, 0, "DOT"))

				if err := NewDepositBucket().Has(db, bobCond.Address()); !errors.ErrNotFound.Is(err) {
					t.Fatalf("deposit must be deleted after the claim: %+v", err)
				}
				assertTotalLocked(t, db)

				msgs := relay.Messages()
				if len(msgs) != 1 {
					t.Fatalf("want one relayed message, got %d", len(msgs))
				}
				if !msgs[0].Beneficiary.Equals(bobCond.Address()) {
					t.Fatalf("unexpected beneficiary: %s", msgs[0].Beneficiary)
				}
				if msgs[0].DestinationChain != 2000 || msgs[0].AssetID != 1 {
					t.Fatalf("unexpected message routing: %+v", msgs[0])
				}
			},
		},
		"a deposit can be claimed only once": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(100, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:         now.Add(minLock.Duration()),
					Conditions:  []weave.Condition{bobCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:         now.Add(minLock.Duration()) + 1,
					Conditions:  []weave.Condition{bobCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 102,
					WantErr:     ErrNoDeposit,
				},
			},
		},
		"claiming without a deposit fails": {
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 100,
					WantErr:     ErrNoDeposit,
				},
			},
		},
		"claim requires the depositor signature": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(100, 0, "DOT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:         now.Add(minLock.Duration()),
					Conditions:  []weave.Condition{aliceCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 101,
					WantErr:     errors.ErrUnauthorized,
				},
			},
		},
		"only the admin can trigger the emergency unlock": {
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{aliceCond},
					Tx:          emergencyTx(),
					BlockHeight: 100,
					WantErr:     errors.ErrUnauthorized,
				},
				{
					Now:         now + 1,
					Conditions:  []weave.Condition{adminCond},
					Tx:          emergencyTx(),
					BlockHeight: 101,
					WantErr:     nil,
				},
				// Triggering again must not fail.
				{
					Now:         now + 2,
					Conditions:  []weave.Condition{adminCond},
					Tx:          emergencyTx(),
					BlockHeight: 102,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay) {
				state, err := loadState(db, NewStateBucket())
				if err != nil {
					t.Fatalf("cannot load state: %s", err)
				}
				if !state.EmergencyMode {
					t.Fatal("emergency mode must be set")
				}
			},
		},
		"emergency unlock allows claiming before the unlock time": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(100, 0, "USDT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "USDT"), minLock),
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:         now + 1,
					Conditions:  []weave.Condition{bobCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 101,
					WantErr:     ErrStillLocked,
				},
				{
					Now:         now + 2,
					Conditions:  []weave.Condition{adminCond},
					Tx:          emergencyTx(),
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:         now + 3,
					Conditions:  []weave.Condition{bobCond},
					Tx:          claimTx(bobCond),
					BlockHeight: 103,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay) {
				assertFunds(t, db, bridgeCond.Address(), coin.NewCoin(100, 0, "USDT"))
				assertTotalLocked(t, db)
				if len(relay.Messages()) != 1 {
					t.Fatalf("want one relayed message, got %d", len(relay.Messages()))
				}
			},
		},
		"deposits of different assets are aggregated separately": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(100, 0, "DOT")},
				{Wallet: aliceCond.Address(), Amount: coin.NewCoin(40, 0, "USDT")},
			},
			Requests: []Request{
				{
					Now:         now,
					Conditions:  []weave.Condition{bobCond},
					Tx:          depositTx(bobCond, coin.NewCoin(100, 0, "DOT"), minLock),
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:         now + 1,
					Conditions:  []weave.Condition{aliceCond},
					Tx:          depositTx(aliceCond, coin.NewCoin(40, 0, "USDT"), minLock),
					BlockHeight: 101,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore, relay *xcm.MemoryRelay) {
				assertTotalLocked(t, db,
					coin.NewCoin(100, 0, "DOT"),
					coin.NewCoin(40, 0, "USDT"),
				)
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "vault", "assets", "cash")

			rt := app.NewRouter()
			auth := &weavetest.CtxAuth{Key: "auth"}
			ctrl := cash.NewController(cash.NewBucket())
			relay := xcm.NewMemoryRelay()
			RegisterRoutes(rt, auth, ctrl, relay)
			cash.RegisterRoutes(rt, auth, ctrl)

			registry := assets.NewAssetBucket()
			for _, a := range []struct {
				ticker string
				id     uint32
				name   string
			}{
				{"DOT", 1, "Polkadot"},
				{"USDT", 2, "Tether USD"},
			} {
				info := assets.AssetInfo{
					Metadata: &weave.Metadata{Schema: 1},
					AssetID:  a.id,
					Name:     a.name,
				}
				if _, err := registry.Put(db, []byte(a.ticker), &info); err != nil {
					t.Fatalf("cannot register asset %q: %s", a.ticker, err)
				}
			}

			for _, b := range tc.Funds {
				if err := ctrl.CoinMint(db, b.Wallet, b.Amount); err != nil {
					t.Fatalf("cannot mint coins for %q: %s", b.Wallet, err)
				}
			}

			config := Configuration{
				Metadata:        &weave.Metadata{Schema: 1},
				Admin:           adminCond.Address(),
				Bridge:          bridgeCond.Address(),
				MinLockDuration: minLock,
			}
			if err := gconf.Save(db, "vault", &config); err != nil {
				t.Fatalf("cannot save configuration: %s", err)
			}

			for i, req := range tc.Requests {
				ctx := weave.WithHeight(context.Background(), req.BlockHeight)
				ctx = weave.WithChainID(ctx, "testchain-123")
				ctx = auth.SetConditions(ctx, req.Conditions...)
				ctx = weave.WithBlockTime(ctx, req.Now.Time())

				cache := db.CacheWrap()
				if _, err := rt.Check(ctx, cache, req.Tx); !req.WantErr.Is(err) {
					t.Fatalf("unexpected %d check error: want %q, got %+v", i, req.WantErr, err)
				}
				cache.Discard()

				cache = db.CacheWrap()
				if _, err := rt.Deliver(ctx, cache, req.Tx); !req.WantErr.Is(err) {
					t.Fatalf("unexpected %d deliver error: want %q, got %+v", i, req.WantErr, err)
				} else if err == nil {
					if err := cache.Write(); err != nil {
						t.Fatalf("cannot write cache: %s", err)
					}
				} else {
					cache.Discard()
				}
			}

			if tc.AfterTest != nil {
				tc.AfterTest(t, db, relay)
			}
		})
	}
}

func assertFunds(t testing.TB, db weave.KVStore, wallet weave.Address, funds coin.Coin) {
	t.Helper()

	ctrl := cash.NewController(cash.NewBucket())
	coins, err := ctrl.Balance(db, wallet)
	if err != nil {
		t.Fatalf("balance: %s", err)
	}
	if len(coins) != 1 {
		t.Fatalf("want %q funds, found %d coins: %q", funds, len(coins), coins)
	}
	if !coins[0].Equals(funds) {
		t.Fatalf("unexpected funds found: %q", coins[0])
	}
}

func assertTotalLocked(t testing.TB, db weave.KVStore, want ...coin.Coin) {
	t.Helper()

	state, err := loadState(db, NewStateBucket())
	if err != nil {
		t.Fatalf("cannot load state: %s", err)
	}
	total := coin.Coins(state.TotalLocked)
	if total.Count() != len(want) {
		t.Fatalf("want %d aggregates, got %q", len(want), total)
	}
	for _, c := range want {
		if !total.Contains(c) {
			t.Fatalf("total locked %q does not contain %q", total, c)
		}
	}
}

func TestClaimIsAbortedWhenRelayRefuses(t *testing.T) {
	var (
		bridgeCond = weavetest.NewCondition()
		bobCond    = weavetest.NewCondition()

		now = weave.UnixTime(1600000000)
	)

	db := store.MemStore()
	migration.MustInitPkg(db, "vault", "assets", "cash")

	ctrl := cash.NewController(cash.NewBucket())
	deposits := NewDepositBucket()
	states := NewStateBucket()

	// A matured deposit with the funds already locked on the deposit
	// account.
	if err := ctrl.CoinMint(db, depositAccount(bobCond.Address()), coin.NewCoin(100, 0, "DOT")); err != nil {
		t.Fatalf("cannot mint coins: %s", err)
	}
	deposit := Deposit{
		Metadata:         &weave.Metadata{Schema: 1},
		Depositor:        bobCond.Address(),
		Amount:           coin.NewCoin(100, 0, "DOT"),
		UnlockAt:         now - 1,
		AssetID:          1,
		DestinationChain: 2000,
		CreatedAt:        now - 100000,
	}
	if _, err := deposits.Put(db, bobCond.Address(), &deposit); err != nil {
		t.Fatalf("cannot store deposit: %s", err)
	}
	state := VaultState{
		Metadata:    &weave.Metadata{Schema: 1},
		TotalLocked: []*coin.Coin{coin.NewCoinp(100, 0, "DOT")},
	}
	if err := saveState(db, states, &state); err != nil {
		t.Fatalf("cannot store state: %s", err)
	}
	config := Configuration{
		Metadata:        &weave.Metadata{Schema: 1},
		Admin:           weavetest.NewCondition().Address(),
		Bridge:          bridgeCond.Address(),
		MinLockDuration: weave.AsUnixDuration(60000 * time.Second),
	}
	if err := gconf.Save(db, "vault", &config); err != nil {
		t.Fatalf("cannot save configuration: %s", err)
	}

	relay := xcm.NewMemoryRelay()
	relay.Err = errors.ErrState
	auth := &weavetest.CtxAuth{Key: "auth"}
	h := claimHandler{
		auth:     auth,
		deposits: deposits,
		state:    states,
		cashctrl: ctrl,
		relay:    relay,
	}

	ctx := weave.WithHeight(context.Background(), 100)
	ctx = weave.WithChainID(ctx, "testchain-123")
	ctx = auth.SetConditions(ctx, bobCond)
	ctx = weave.WithBlockTime(ctx, now.Time())

	tx := &weavetest.Tx{
		Msg: &ClaimMsg{
			Metadata:  &weave.Metadata{Schema: 1},
			Depositor: bobCond.Address(),
		},
	}

	cache := db.CacheWrap()
	if _, err := h.Deliver(ctx, cache, tx); !ErrXCMExecution.Is(err) {
		t.Fatalf("want a cross-chain execution error, got %+v", err)
	}
	cache.Discard()

	// With the delivery rolled back the deposit must stay claimable.
	var d Deposit
	if err := deposits.One(db, bobCond.Address(), &d); err != nil {
		t.Fatalf("cannot get deposit: %s", err)
	}
	assertFunds(t, db, depositAccount(bobCond.Address()), coin.NewCoin(100, 0, "DOT"))
	assertTotalLocked(t, db, coin.NewCoin(100, 0, "DOT"))
	if n := len(relay.Messages()); n != 0 {
		t.Fatalf("no message must be accepted by the relay, got %d", n)
	}
}
