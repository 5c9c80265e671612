// Package projects holds the team-formation rules of project posts: the join-request
// ledger, the team roster, the re-entry cooldown and the engine that applies
// request, approve, deny and remove transitions to a Team aggregate.
//
// Nothing in this package touches storage. Callers load a Team, hand it to the
// Engine and persist the result atomically.
package projects
