package vault

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &DepositMsg{}, migration.NoModification)
	migration.MustRegister(1, &ClaimMsg{}, migration.NoModification)
	migration.MustRegister(1, &EmergencyUnlockMsg{}, migration.NoModification)
}

var _ weave.Msg = (*DepositMsg)(nil)

func (DepositMsg) Path() string {
	return "vault/deposit"
}

func (m *DepositMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "Depositor", m.Depositor.Validate())
	if err := m.Amount.Validate(); err != nil {
		errs = errors.AppendField(errs, "Amount", err)
	} else if !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	if m.LockDuration <= 0 {
		errs = errors.AppendField(errs, "LockDuration",
			errors.Wrap(errors.ErrInput, "must be greater than zero"))
	}
	if m.DestinationChain == 0 {
		errs = errors.AppendField(errs, "DestinationChain", errors.ErrEmpty)
	}
	return errs
}

var _ weave.Msg = (*ClaimMsg)(nil)

func (ClaimMsg) Path() string {
	return "vault/claim"
}

func (m *ClaimMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "Depositor", m.Depositor.Validate())
	return errs
}

var _ weave.Msg = (*EmergencyUnlockMsg)(nil)

func (EmergencyUnlockMsg) Path() string {
	return "vault/emergency_unlock"
}

func (m *EmergencyUnlockMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	return errs
}
