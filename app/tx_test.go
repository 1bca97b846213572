package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/aeither/crosschainvestingvault/x/vault"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
)

func TestTxGetMsg(t *testing.T) {
	depositor := weavetest.NewCondition().Address()

	cases := map[string]struct {
		tx      *Tx
		wantMsg weave.Msg
	}{
		"deposit message": {
			tx: &Tx{Sum: &Tx_VaultDepositMsg{VaultDepositMsg: &vault.DepositMsg{
				Metadata:         &weave.Metadata{Schema: 1},
				Depositor:        depositor,
				Amount:           coin.NewCoin(10, 0, "DOT"),
				LockDuration:     weave.AsUnixDuration(60000 * time.Second),
				DestinationChain: 2000,
			}}},
			wantMsg: &vault.DepositMsg{},
		},
		"claim message": {
			tx: &Tx{Sum: &Tx_VaultClaimMsg{VaultClaimMsg: &vault.ClaimMsg{
				Metadata:  &weave.Metadata{Schema: 1},
				Depositor: depositor,
			}}},
			wantMsg: &vault.ClaimMsg{},
		},
		"emergency unlock message": {
			tx: &Tx{Sum: &Tx_VaultEmergencyUnlockMsg{VaultEmergencyUnlockMsg: &vault.EmergencyUnlockMsg{
				Metadata: &weave.Metadata{Schema: 1},
			}}},
			wantMsg: &vault.EmergencyUnlockMsg{},
		},
		"send message": {
			tx: &Tx{Sum: &Tx_CashSendMsg{CashSendMsg: &cash.SendMsg{
				Metadata: &weave.Metadata{Schema: 1},
			}}},
			wantMsg: &cash.SendMsg{},
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			msg, err := tc.tx.GetMsg()
			assert.Nil(t, err)
			if gotPath, wantPath := msg.Path(), tc.wantMsg.Path(); gotPath != wantPath {
				t.Fatalf("want %q message, got %q", wantPath, gotPath)
			}
		})
	}
}

func TestTxDecoder(t *testing.T) {
	tx := &Tx{
		Sum: &Tx_VaultClaimMsg{VaultClaimMsg: &vault.ClaimMsg{
			Metadata:  &weave.Metadata{Schema: 1},
			Depositor: weavetest.NewCondition().Address(),
		}},
	}
	raw, err := tx.Marshal()
	assert.Nil(t, err)

	decoded, err := TxDecoder(raw)
	assert.Nil(t, err)
	msg, err := decoded.GetMsg()
	assert.Nil(t, err)
	claim, ok := msg.(*vault.ClaimMsg)
	if !ok {
		t.Fatalf("unexpected message type: %T", msg)
	}
	assert.Equal(t, tx.GetVaultClaimMsg().Depositor, claim.Depositor)
}

func TestSignBytesIgnoreSignatures(t *testing.T) {
	tx := &Tx{
		Sum: &Tx_VaultClaimMsg{VaultClaimMsg: &vault.ClaimMsg{
			Metadata:  &weave.Metadata{Schema: 1},
			Depositor: weavetest.NewCondition().Address(),
		}},
	}
	unsigned, err := tx.GetSignBytes()
	assert.Nil(t, err)

	sig, err := sigs.SignTx(weavetest.NewKey(), tx, "testchain-123", 0)
	assert.Nil(t, err)
	tx.Signatures = append(tx.Signatures, sig)

	signed, err := tx.GetSignBytes()
	assert.Nil(t, err)
	if !bytes.Equal(unsigned, signed) {
		t.Fatal("sign bytes must not cover the signatures")
	}
	// the signatures must survive the sign bytes computation
	if len(tx.Signatures) == 0 {
		t.Fatal("signatures were lost")
	}
}
