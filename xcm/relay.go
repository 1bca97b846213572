package xcm

import (
	"encoding/hex"
	"sync"

	"github.com/iov-one/weave/errors"
)

// Relay accepts cross-chain messages for delivery. Submit returns an
// opaque handle that identifies the transfer for later status lookups.
// Submission is synchronous but delivery is not: a successful Submit only
// means the relay accepted responsibility for the message.
type Relay interface {
	Submit(Message) ([]byte, error)
}

// Status of a submitted message as seen by the relay.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// MemoryRelay is a Relay that keeps all submissions in memory. It backs
// tests and standalone runs where no bridge infrastructure is available.
// An operator (or a test) resolves pending submissions out of band.
//
// Set Err to make every Submit call fail with that error.
type MemoryRelay struct {
	Err error

	mu       sync.Mutex
	statuses map[string]Status
	messages []Message
}

var _ Relay = (*MemoryRelay)(nil)

func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{
		statuses: make(map[string]Status),
	}
}

// Submit accepts the message and marks it pending. The returned handle is
// the message digest.
func (r *MemoryRelay) Submit(msg Message) ([]byte, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	handle := msg.Digest()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[hex.EncodeToString(handle)] = StatusPending
	r.messages = append(r.messages, msg)
	return handle, nil
}

// Resolve moves a pending submission to its final status.
func (r *MemoryRelay) Resolve(handle []byte, delivered bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := hex.EncodeToString(handle)
	if _, ok := r.statuses[key]; !ok {
		return errors.Wrap(errors.ErrNotFound, "unknown handle")
	}
	if delivered {
		r.statuses[key] = StatusDelivered
	} else {
		r.statuses[key] = StatusFailed
	}
	return nil
}

// Status returns the current state of a submission.
func (r *MemoryRelay) Status(handle []byte) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.statuses[hex.EncodeToString(handle)]
	if !ok {
		return "", errors.Wrap(errors.ErrNotFound, "unknown handle")
	}
	return s, nil
}

// Messages returns a copy of all accepted messages in submission order.
func (r *MemoryRelay) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]Message, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}
