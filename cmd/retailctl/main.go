// Package main is retailctl, the operator CLI: stock and alert queries, sale
// voids, file imports, migrations and token issuance.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
