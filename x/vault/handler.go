package vault

import (
	"encoding/hex"
	"strconv"

	"github.com/aeither/crosschainvestingvault/x/assets"
	"github.com/aeither/crosschainvestingvault/xcm"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
	"github.com/tendermint/tendermint/libs/common"
)

const (
	tagAction      = "vault-action"
	tagDepositor   = "vault-depositor"
	tagAmount      = "vault-amount"
	tagAsset       = "vault-asset"
	tagUnlockAt    = "vault-unlock-at"
	tagDestination = "vault-destination"
	tagAdmin       = "vault-admin"
	tagTimestamp   = "vault-timestamp"
	tagXCMDigest   = "xcm-digest"
	tagXCMExecuted = "xcm-executed"
)

func RegisterQuery(qr weave.QueryRouter) {
	NewDepositBucket().Register("deposits", qr)
	NewStateBucket().Register("vaultstate", qr)
}

func RegisterRoutes(r weave.Registry, auth x.Authenticator, cashctrl cash.Controller, relay xcm.Relay) {
	r = migration.SchemaMigratingRegistry("vault", r)

	deposits := NewDepositBucket()
	state := NewStateBucket()

	r.Handle(&DepositMsg{}, &depositHandler{
		auth:     auth,
		deposits: deposits,
		state:    state,
		assets:   assets.NewAssetBucket(),
		cashctrl: cashctrl,
	})
	r.Handle(&ClaimMsg{}, &claimHandler{
		auth:     auth,
		deposits: deposits,
		state:    state,
		cashctrl: cashctrl,
		relay:    relay,
	})
	r.Handle(&EmergencyUnlockMsg{}, &emergencyUnlockHandler{
		auth:  auth,
		state: state,
	})
}

// depositAccount returns the address of the account that holds the funds
// of a single depositor until they are claimed.
func depositAccount(depositor weave.Address) weave.Address {
	return weave.NewCondition("vault", "deposit", depositor).Address()
}

type depositHandler struct {
	auth     x.Authenticator
	deposits orm.ModelBucket
	state    orm.ModelBucket
	assets   orm.ModelBucket
	cashctrl cash.Controller
}

func (h *depositHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *depositHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, asset, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}
	// Lock funds by moving them away from the depositor account.
	if err := cash.MoveCoins(db, h.cashctrl, msg.Depositor, depositAccount(msg.Depositor), []*coin.Coin{&msg.Amount}); err != nil {
		return nil, errors.Wrap(err, "deposit funds")
	}
	unlockAt := weave.AsUnixTime(now.Add(msg.LockDuration.Duration()))
	deposit := Deposit{
		Metadata:         &weave.Metadata{Schema: 1},
		Depositor:        msg.Depositor,
		Amount:           msg.Amount,
		UnlockAt:         unlockAt,
		AssetID:          asset.AssetID,
		DestinationChain: msg.DestinationChain,
		CreatedAt:        weave.AsUnixTime(now),
	}
	if _, err := h.deposits.Put(db, msg.Depositor, &deposit); err != nil {
		return nil, errors.Wrap(err, "store deposit")
	}

	state, err := loadState(db, h.state)
	if err != nil {
		return nil, err
	}
	total, err := coin.Coins(state.TotalLocked).Add(msg.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "update total locked")
	}
	state.TotalLocked = total
	if err := saveState(db, h.state, state); err != nil {
		return nil, err
	}

	res := weave.DeliverResult{Data: msg.Depositor}
	res.Tags = append(res.Tags, []common.KVPair{
		{Key: []byte(tagAction), Value: []byte("deposit")},
		{Key: []byte(tagDepositor), Value: []byte(msg.Depositor.String())},
		{Key: []byte(tagAmount), Value: []byte(msg.Amount.String())},
		{Key: []byte(tagAsset), Value: []byte(strconv.FormatUint(uint64(asset.AssetID), 10))},
		{Key: []byte(tagUnlockAt), Value: []byte(strconv.FormatInt(int64(unlockAt), 10))},
	}...)
	return &res, nil
}

func (h *depositHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*DepositMsg, *assets.AssetInfo, error) {
	var msg DepositMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Depositor) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature is required")
	}
	var asset assets.AssetInfo
	switch err := h.assets.One(db, []byte(msg.Amount.Ticker), &asset); {
	case err == nil:
		// All good.
	case errors.ErrNotFound.Is(err):
		return nil, nil, errors.Wrapf(ErrAssetNotSupported, "ticker %q", msg.Amount.Ticker)
	default:
		return nil, nil, errors.Wrap(err, "get asset")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load conf")
	}
	if msg.LockDuration < conf.MinLockDuration {
		return nil, nil, errors.Wrapf(ErrLockTooShort, "minimum is %s", conf.MinLockDuration)
	}
	switch err := h.deposits.Has(db, msg.Depositor); {
	case err == nil:
		return nil, nil, errors.Wrap(errors.ErrDuplicate, "account has an active deposit")
	case errors.ErrNotFound.Is(err):
		// All good.
	default:
		return nil, nil, errors.Wrap(err, "get deposit")
	}
	if err := hasFunds(db, h.cashctrl, msg.Depositor, msg.Amount); err != nil {
		return nil, nil, err
	}
	return &msg, &asset, nil
}

// hasFunds returns no error if given wallet contains at least given amount
// of funds.
func hasFunds(db weave.KVStore, ctrl cash.Controller, wallet weave.Address, funds coin.Coin) error {
	coins, err := ctrl.Balance(db, wallet)
	if err != nil {
		return errors.Wrap(err, "depositor balance")
	}
	for _, c := range coins {
		if c.Ticker != funds.Ticker {
			continue
		}
		if c.Compare(funds) >= 0 {
			return nil
		}
	}
	return errors.Wrap(errors.ErrAmount, "not enough funds on depositor account")
}

type claimHandler struct {
	auth     x.Authenticator
	deposits orm.ModelBucket
	state    orm.ModelBucket
	cashctrl cash.Controller
	relay    xcm.Relay
}

func (h *claimHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *claimHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, deposit, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, errors.Wrap(err, "load conf")
	}

	transfer := xcm.Message{
		Beneficiary:      deposit.Depositor,
		Amount:           deposit.Amount,
		DestinationChain: deposit.DestinationChain,
		AssetID:          deposit.AssetID,
	}
	digest := transfer.Digest()

	// Remove the deposit before moving any funds so that a second claim
	// within the same block cannot release twice.
	if err := h.deposits.Delete(db, msg.Depositor); err != nil {
		return nil, errors.Wrap(err, "delete deposit")
	}
	state, err := loadState(db, h.state)
	if err != nil {
		return nil, err
	}
	total, err := coin.Coins(state.TotalLocked).Subtract(deposit.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "update total locked")
	}
	state.TotalLocked = total
	if err := saveState(db, h.state, state); err != nil {
		return nil, err
	}
	if err := cash.MoveCoins(db, h.cashctrl, depositAccount(msg.Depositor), conf.Bridge, []*coin.Coin{&deposit.Amount}); err != nil {
		return nil, errors.Wrap(err, "release deposited funds")
	}
	if _, err := h.relay.Submit(transfer); err != nil {
		return nil, errors.Wrap(ErrXCMExecution, err.Error())
	}

	res := weave.DeliverResult{Data: digest}
	res.Tags = append(res.Tags, []common.KVPair{
		{Key: []byte(tagAction), Value: []byte("claim")},
		{Key: []byte(tagDepositor), Value: []byte(msg.Depositor.String())},
		{Key: []byte(tagAmount), Value: []byte(deposit.Amount.String())},
		{Key: []byte(tagDestination), Value: []byte(strconv.FormatUint(uint64(deposit.DestinationChain), 10))},
		{Key: []byte(tagXCMDigest), Value: []byte(hex.EncodeToString(digest))},
		{Key: []byte(tagXCMExecuted), Value: []byte("success")},
	}...)
	return &res, nil
}

func (h *claimHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ClaimMsg, *Deposit, error) {
	var msg ClaimMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Depositor) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature is required")
	}
	var deposit Deposit
	switch err := h.deposits.One(db, msg.Depositor, &deposit); {
	case err == nil:
		// All good.
	case errors.ErrNotFound.Is(err):
		return nil, nil, errors.Wrap(ErrNoDeposit, "nothing to claim")
	default:
		return nil, nil, errors.Wrap(err, "get deposit")
	}
	state, err := loadState(db, h.state)
	if err != nil {
		return nil, nil, err
	}
	if !state.EmergencyMode {
		now, err := weave.BlockTime(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "block time")
		}
		if now.Before(deposit.UnlockAt.Time()) {
			return nil, nil, errors.Wrapf(ErrStillLocked, "until %s", deposit.UnlockAt)
		}
	}
	return &msg, &deposit, nil
}

type emergencyUnlockHandler struct {
	auth  x.Authenticator
	state orm.ModelBucket
}

func (h *emergencyUnlockHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *emergencyUnlockHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	conf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}
	state, err := loadState(db, h.state)
	if err != nil {
		return nil, err
	}
	// Triggering again is allowed and changes nothing. The mode can never
	// be left once entered.
	state.EmergencyMode = true
	if err := saveState(db, h.state, state); err != nil {
		return nil, err
	}

	var res weave.DeliverResult
	res.Tags = append(res.Tags, []common.KVPair{
		{Key: []byte(tagAction), Value: []byte("emergency-unlock")},
		{Key: []byte(tagAdmin), Value: []byte(conf.Admin.String())},
		{Key: []byte(tagTimestamp), Value: []byte(strconv.FormatInt(now.Unix(), 10))},
	}...)
	return &res, nil
}

func (h *emergencyUnlockHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*Configuration, error) {
	var msg EmergencyUnlockMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, errors.Wrap(err, "load conf")
	}
	if !h.auth.HasAddress(ctx, conf.Admin) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "admin signature missing")
	}
	return &conf, nil
}
