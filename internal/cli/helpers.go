package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// passphraseFromEnv reads a passphrase from the named environment variable.
// An empty name or an unset variable means no passphrase.
func passphraseFromEnv(name string) []byte {
	if name == "" {
		return nil
	}
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return nil
	}
	return []byte(value)
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrIO, err)
	}
	return nil
}
