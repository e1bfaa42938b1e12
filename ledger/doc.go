/*
Package ledger defines how the dapp talks to the Flow network: read-only queries, signed
mutations and transaction tracking.

# Overview

The package separates the contracts the controller depends on from the transport that fulfils
them. The controller only sees [Client] and [Tracker]; production code plugs in a [Chain] backed
by the Access REST API, and tests plug in the in-memory ledger from package ledgertest.

# Architecture

 1. Client contracts (client.go) - Querier, Mutator and ResultFetcher
 2. Chain (chain.go) - Client over the Access API, builds and signs transactions
 3. Transaction (transaction.go) - canonical RLP encoding, domain tagged signing messages
 4. Tracker (tracker.go) - await-sealed and status subscriptions over a ResultFetcher
 5. Providers (package provider) - construct a Chain for a network or an emulator

# Queries

	v, err := chain.Query(ctx, ledger.Query{
		Code: script,
		Args: []cadence.Value{addr.Cadence()},
	})
	var qerr *ledger.QueryError
	if errors.As(err, &qerr) {
		// the script failed or the node was unreachable
	}

# Mutations

A Mutation names the payer, the proposer and the authorizers. The common case of a single
account filling every role is built with [SingleAuthorizer]:

	m := ledger.SingleAuthorizer(code, args, auth, ledger.DefaultComputeLimit)
	id, err := chain.Mutate(ctx, m)

# Tracking

	tracker := ledger.NewTracker(chain, ledger.WithTickInterval(time.Second))

	// block until sealed
	res, err := tracker.OnceSealed(ctx, id)

	// or follow every status change
	sub := tracker.Subscribe(ctx, id, func(r ledger.TransactionResult) {
		fmt.Println(r.Status)
	})
	defer sub.Stop()

Status callbacks are monotonic: a status is delivered only if it advances the lifecycle
PENDING, FINALIZED, EXECUTED, SEALED, or moves to EXPIRED.
*/
package ledger
