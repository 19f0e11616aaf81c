package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/errors"
)

var (
	requestRole          string
	requestIdentifier    string
	requestServiceID     uint32
	requestSANs          []string
	requestRenew         bool
	requestOut           string
	requestKeyOut        string
	requestPassphraseEnv string
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Generate a key pair and a certificate signing request",
	Long: `Generate a key pair and a certificate signing request.

The request's Common Name is assembled from the role, identifier, and
service id according to the network's identity grammar. The CSR is
written to --out (stdout by default) and the private key to --key-out,
encrypted when --passphrase-env names a set variable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, hierarchy, err := loadEnvironment()
		if err != nil {
			return err
		}

		role, err := domain.RoleFromToken(requestRole)
		if err != nil {
			return err
		}
		var identifier *uuid.UUID
		if requestIdentifier != "" {
			parsed, err := uuid.Parse(requestIdentifier)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidIdentity, "identifier %q is not a UUID", requestIdentifier)
			}
			identifier = &parsed
		}
		var serviceID *uint32
		if cmd.Flags().Changed("service-id") {
			serviceID = &requestServiceID
		}

		credential, err := hierarchy.CredentialFor(role, identifier, serviceID)
		if err != nil {
			return err
		}
		if requestRenew {
			// Renewal reuses the stored key, so the persisted credential is
			// loaded before the request is built.
			if err := credential.Load(true, passphraseFromEnv(requestPassphraseEnv)); err != nil {
				return err
			}
		}
		request, err := credential.CreateRequest(requestSANs, requestRenew)
		if err != nil {
			return err
		}

		keyPEM, err := credential.PrivateKeyAsBytes(passphraseFromEnv(requestPassphraseEnv))
		if err != nil {
			return err
		}
		if err := os.WriteFile(requestKeyOut, keyPEM, 0o600); err != nil {
			return errors.Wrap(errors.ErrIO, err)
		}
		if err := writeOutput(cmd, requestOut, request.PEM()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "request created for %s\n", credential.CommonName())
		return nil
	},
}

func init() {
	requestCmd.Flags().StringVar(&requestRole, "role", "", "identity role token (e.g. account, member, service-ca)")
	requestCmd.Flags().StringVar(&requestIdentifier, "identifier", "", "UUID identifier, for roles that carry one")
	requestCmd.Flags().Uint32Var(&requestServiceID, "service-id", 0, "service id, for service-scoped roles")
	requestCmd.Flags().StringArrayVar(&requestSANs, "san", nil, "additional subject alternative name (repeatable)")
	requestCmd.Flags().BoolVar(&requestRenew, "renew", false, "reuse an existing key instead of failing")
	requestCmd.Flags().StringVarP(&requestOut, "out", "o", "", "write the CSR here instead of stdout")
	requestCmd.Flags().StringVar(&requestKeyOut, "key-out", "key.pem", "write the private key here")
	requestCmd.Flags().StringVar(&requestPassphraseEnv, "passphrase-env", "", "environment variable holding the key passphrase")
	_ = requestCmd.MarkFlagRequired("role")
}
