// The masscoin-ledger API server: wallets, transfers, escrowed transfer
// requests, withdrawals, and the background sweep and reconciliation workers.
package main

import (
	"fmt"
	"os"

	"github.com/maschat/masscoin-ledger/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "masscoin-ledger: %v\n", err)
		os.Exit(1)
	}
}
