// Package cli implements the trustfabric command-line interface.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	configadapter "github.com/trustfabric/trustfabric/internal/adapters/secondary/config"
	"github.com/trustfabric/trustfabric/internal/adapters/secondary/storage/disk"
	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

var (
	configPath    string
	networkDomain string
)

var rootCmd = &cobra.Command{
	Use:   "trustfabric",
	Short: "Certificate authority tooling for the trustfabric network",
	Long: `Certificate authority tooling for the trustfabric network.

trustfabric manages the network's certificate-authority hierarchy: the
trust root, the network-level accounts and services authorities, the
per-service authorities, and the leaf credentials they sign. Use it to
bootstrap a hierarchy, create and sign certificate requests, and verify
chains of trust.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&networkDomain, "network", "", "network domain (overrides configuration)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadEnvironment resolves configuration, network, storage, and hierarchy
// for a command invocation.
func loadEnvironment() (*ports.Configuration, *domain.Hierarchy, error) {
	provider := configadapter.NewProvider()
	if networkDomain != "" {
		provider.Set("network.domain", networkDomain)
	}
	cfg, err := provider.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration (pass --network or set network.domain): %w", err)
	}

	network, err := domain.NewNetwork(cfg.Network.Domain)
	if err != nil {
		return nil, nil, err
	}
	store := disk.New(cfg.Storage.Root)
	hierarchy := domain.NewHierarchy(network, cfg, store, slog.Default())
	return cfg, hierarchy, nil
}
