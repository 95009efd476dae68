// Package votingdao implements the proposal ledger of the governance context.
//
// The module owns proposal creation, the per-proposal voter ledger and the
// for/against tallies. Votes are accepted only while a proposal is active and
// at most once per voter; every check-then-act sequence runs inside one
// ports.Transactor unit of work so concurrent voters cannot break the
// counters. Proposal and vote events are written to an outbox in the same
// unit of work and relayed by workers.OutboxRelay.
package votingdao
