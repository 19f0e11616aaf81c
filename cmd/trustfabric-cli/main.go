// trustfabric-cli is the command-line interface for the trustfabric
// certificate-authority toolkit.
//
// It manages the network's certificate hierarchy:
//   - bootstrapping the trust root and the subordinate authorities
//   - generating keys and certificate signing requests
//   - reviewing and signing requests under the authority policies
//   - verifying and inspecting issued certificates
//
// Usage:
//
//	trustfabric init root --network example.net
//	trustfabric sign --authority accounts --csr request.pem
//	trustfabric --help
package main

import (
	"fmt"
	"os"

	"github.com/trustfabric/trustfabric/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
