package vault

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrNoDeposit is returned when claiming for an account that has no
	// active deposit.
	ErrNoDeposit = errors.Register(1500, "no deposit found")

	// ErrStillLocked is returned when claiming a deposit before its
	// unlock time while the vault is not in emergency mode.
	ErrStillLocked = errors.Register(1501, "tokens still locked")

	// ErrAssetNotSupported is returned when depositing a token that is
	// not present in the asset registry.
	ErrAssetNotSupported = errors.Register(1502, "asset not supported")

	// ErrLockTooShort is returned when the requested lock duration is
	// below the configured minimum.
	ErrLockTooShort = errors.Register(1503, "lock duration too short")

	// ErrXCMExecution is returned when the cross-chain relay refuses a
	// transfer message.
	ErrXCMExecution = errors.Register(1504, "cross-chain execution failed")
)
