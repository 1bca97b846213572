/*
Package vault implements a custodial vault for cross-chain vesting
deposits.

An account locks funds for a chosen duration together with a destination
chain. Once the lock passes (or the admin triggered the emergency unlock)
the account claims the deposit: the funds move to the bridge custody
account and a transfer message is handed to the cross-chain relay. A
deposit can be claimed exactly once.

The vault keeps one deposit per account and a vault wide aggregate of all
locked funds. The emergency unlock is permanent, there is no message that
reenables the time locks.
*/
package vault
