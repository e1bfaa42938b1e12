// Package provider initializes ledger.Chain instances for a Flow Access node or a local
// emulator.
package provider

import (
	"context"

	"github.com/flowdapp/profile-dapp/ledger"
)

// ChainProvider initializes a chain and the tracker following its transactions.
type ChainProvider interface {
	Initialize(ctx context.Context) (ledger.Chain, error)
	Name() string
	Chain() ledger.Chain
	Tracker() *ledger.Tracker
}
