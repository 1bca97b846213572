/*
Package xcm provides the cross-chain transfer message format used when
releasing vault deposits to another chain.

A Message carries everything the destination chain needs to credit the
beneficiary: the beneficiary address, the amount, the destination chain
identifier and the numeric asset identifier. Messages serialize to a
canonical byte representation, and the sha256 digest of that
representation identifies a transfer across both chains.

Delivery is delegated to a Relay. The state machine only hands a message
over; tracking and finalizing the transfer on the destination chain is the
relay operator's concern.
*/
package xcm
