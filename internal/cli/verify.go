package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/pkg/trustfabric"
)

var (
	verifyCertPath string
	verifyRootPath string
	verifyRole     string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate a certificate's chain of trust",
	Long: `Validate a certificate's chain of trust.

The certificate file holds the leaf followed by its intermediate chain,
as produced by sign. The chain is walked link by link up to the trusted
root given with --root. With --role, the leaf's Common Name must also
decode to that role and its issuer must be the authority the hierarchy
expects for it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		certData, err := os.ReadFile(verifyCertPath)
		if err != nil {
			return errors.Wrap(errors.ErrIO, err)
		}
		certs, err := domain.ParseCertificatesPEM(certData)
		if err != nil {
			return err
		}
		leaf, chain := certs[0], certs[1:]

		rootData, err := os.ReadFile(verifyRootPath)
		if err != nil {
			return errors.Wrap(errors.ErrIO, err)
		}
		root, err := domain.ParseCertificatePEM(rootData)
		if err != nil {
			return err
		}

		if err := domain.ValidateChain(leaf, chain, root); err != nil {
			return err
		}

		if verifyRole != "" {
			// The root's Common Name is the network domain unless the flag
			// says otherwise.
			domainName := networkDomain
			if domainName == "" {
				domainName = root.Subject.CommonName
			}
			role, err := domain.RoleFromToken(verifyRole)
			if err != nil {
				return err
			}
			if err := trustfabric.VerifyRoleChainForCert(leaf, domainName, role); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "OK: %s chains to %s\n", leaf.Subject.CommonName, root.Subject.CommonName)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCertPath, "cert", "", "certificate file (leaf followed by chain)")
	verifyCmd.Flags().StringVar(&verifyRootPath, "root", "", "trusted root certificate file")
	verifyCmd.Flags().StringVar(&verifyRole, "role", "", "also require the leaf to carry this role")
	_ = verifyCmd.MarkFlagRequired("cert")
	_ = verifyCmd.MarkFlagRequired("root")
}
