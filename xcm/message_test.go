package xcm

import (
	"testing"

	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/weavetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDigestDeterministic(t *testing.T) {
	addr := weavetest.NewCondition().Address()
	a := Message{
		Beneficiary:      addr,
		Amount:           coin.NewCoin(100, 0, "DOT"),
		DestinationChain: 2000,
		AssetID:          1,
	}
	b := Message{
		Beneficiary:      addr,
		Amount:           coin.NewCoin(100, 0, "DOT"),
		DestinationChain: 2000,
		AssetID:          1,
	}
	require.NotEmpty(t, a.Digest())
	assert.Equal(t, a.Digest(), b.Digest())
	assert.Len(t, a.Digest(), 32)
}

func TestMessageDigestSensitivity(t *testing.T) {
	base := Message{
		Beneficiary:      weavetest.NewCondition().Address(),
		Amount:           coin.NewCoin(100, 0, "DOT"),
		DestinationChain: 2000,
		AssetID:          1,
	}

	cases := map[string]Message{
		"different beneficiary": {
			Beneficiary:      weavetest.NewCondition().Address(),
			Amount:           base.Amount,
			DestinationChain: base.DestinationChain,
			AssetID:          base.AssetID,
		},
		"different amount": {
			Beneficiary:      base.Beneficiary,
			Amount:           coin.NewCoin(101, 0, "DOT"),
			DestinationChain: base.DestinationChain,
			AssetID:          base.AssetID,
		},
		"different ticker": {
			Beneficiary:      base.Beneficiary,
			Amount:           coin.NewCoin(100, 0, "USDT"),
			DestinationChain: base.DestinationChain,
			AssetID:          base.AssetID,
		},
		"different destination": {
			Beneficiary:      base.Beneficiary,
			Amount:           base.Amount,
			DestinationChain: 3000,
			AssetID:          base.AssetID,
		},
		"different asset": {
			Beneficiary:      base.Beneficiary,
			Amount:           base.Amount,
			DestinationChain: base.DestinationChain,
			AssetID:          2,
		},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, base.Digest(), msg.Digest())
		})
	}
}

func TestMessageBytesEncodesAllFields(t *testing.T) {
	msg := Message{
		Beneficiary:      weavetest.NewCondition().Address(),
		Amount:           coin.NewCoin(7, 500000000, "USDT"),
		DestinationChain: 1000,
		AssetID:          2,
	}
	raw := msg.Bytes()
	require.NotEmpty(t, raw)
	assert.EqualValues(t, messageVersion, raw[0])
	// version + address length prefix + address + whole + fractional +
	// ticker length prefix + ticker + destination + asset id
	want := 1 + 1 + len(msg.Beneficiary) + 8 + 8 + 1 + len(msg.Amount.Ticker) + 4 + 4
	assert.Len(t, raw, want)
}

func TestMessageValidate(t *testing.T) {
	cases := map[string]struct {
		msg     Message
		wantErr bool
	}{
		"valid": {
			msg: Message{
				Beneficiary:      weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(1, 0, "DOT"),
				DestinationChain: 2000,
				AssetID:          1,
			},
		},
		"missing beneficiary": {
			msg: Message{
				Amount:           coin.NewCoin(1, 0, "DOT"),
				DestinationChain: 2000,
				AssetID:          1,
			},
			wantErr: true,
		},
		"zero amount": {
			msg: Message{
				Beneficiary:      weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(0, 0, "DOT"),
				DestinationChain: 2000,
				AssetID:          1,
			},
			wantErr: true,
		},
		"negative amount": {
			msg: Message{
				Beneficiary:      weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(-1, 0, "DOT"),
				DestinationChain: 2000,
				AssetID:          1,
			},
			wantErr: true,
		},
		"missing destination": {
			msg: Message{
				Beneficiary: weavetest.NewCondition().Address(),
				Amount:      coin.NewCoin(1, 0, "DOT"),
				AssetID:     1,
			},
			wantErr: true,
		},
		"missing asset": {
			msg: Message{
				Beneficiary:      weavetest.NewCondition().Address(),
				Amount:           coin.NewCoin(1, 0, "DOT"),
				DestinationChain: 2000,
			},
			wantErr: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
