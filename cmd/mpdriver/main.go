// mpdriver runs message-processing drivers described in YAML property files.
//
// Usage:
//
//	mpdriver run --properties flows.yaml --key orders --request req.xml
//	mpdriver describe --properties flows.yaml --key orders
//	mpdriver units
//
// Every flag can also be given as MPDRIVER_<FLAG> in the environment or in
// the file passed with --config.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
