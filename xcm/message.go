package xcm

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
)

// messageVersion is the first byte of every serialized message. Bump it
// whenever the canonical encoding changes.
const messageVersion = 1

// Message is a single cross-chain transfer order. It instructs the
// destination chain to credit the beneficiary with the given amount of the
// given asset.
type Message struct {
	Beneficiary      weave.Address
	Amount           coin.Coin
	DestinationChain uint32
	AssetID          uint32
}

func (m Message) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Beneficiary", m.Beneficiary.Validate())
	if err := m.Amount.Validate(); err != nil {
		errs = errors.AppendField(errs, "Amount", err)
	} else if !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	if m.DestinationChain == 0 {
		errs = errors.AppendField(errs, "DestinationChain", errors.ErrEmpty)
	}
	if m.AssetID == 0 {
		errs = errors.AppendField(errs, "AssetID", errors.ErrEmpty)
	}
	return errs
}

// Bytes returns the canonical encoding of the message. Field order and
// width are fixed so that the same transfer always serializes to the same
// bytes, on any node. All integers are big endian.
func (m Message) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(messageVersion)
	buf.WriteByte(byte(len(m.Beneficiary)))
	buf.Write(m.Beneficiary)
	binary.Write(buf, binary.BigEndian, m.Amount.Whole)
	binary.Write(buf, binary.BigEndian, m.Amount.Fractional)
	buf.WriteByte(byte(len(m.Amount.Ticker)))
	buf.WriteString(m.Amount.Ticker)
	binary.Write(buf, binary.BigEndian, m.DestinationChain)
	binary.Write(buf, binary.BigEndian, m.AssetID)
	return buf.Bytes()
}

// Digest returns the sha256 hash of the canonical message encoding. The
// digest identifies the transfer on both sides of the bridge.
func (m Message) Digest() []byte {
	hash := sha256.Sum256(m.Bytes())
	return hash[:]
}
