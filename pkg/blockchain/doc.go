// Package blockchain connects to the 0G EVM chain and submits storage
// commitments to the Flow contract.
//
// InitEvm dials an RPC endpoint and binds the Flow contract at a configured
// address. FlowCommitter implements storage.Committer: it signs a flow(root,
// data) transaction with the caller's credential, sends it and waits for the
// receipt. A reverted receipt is reported as ErrCommitReverted.
//
// The package also carries small helpers for transactors and wei amounts.
package blockchain
