package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/services"
)

var (
	signAuthority     string
	signServiceID     uint32
	signCSRPath       string
	signDays          int
	signOut           string
	signPassphraseEnv string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Review a certificate signing request and issue a certificate",
	Long: `Review a certificate signing request and issue a certificate.

The named authority's credential is loaded from storage with its private
key. The request passes the full review gate before signing; rejections
name the failing check. The output file holds the issued certificate
followed by the authority's chain (the trust root is never included).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, hierarchy, err := loadEnvironment()
		if err != nil {
			return err
		}

		authority, err := authorityByName(hierarchy, signAuthority, signServiceID, cmd.Flags().Changed("service-id"))
		if err != nil {
			return err
		}
		if err := authority.Load(true, passphraseFromEnv(signPassphraseEnv)); err != nil {
			return err
		}

		csrPEM, err := os.ReadFile(signCSRPath)
		if err != nil {
			return errors.Wrap(errors.ErrIO, err)
		}
		request, err := domain.ParseSigningRequest(csrPEM)
		if err != nil {
			return err
		}

		var opts []domain.SignOption
		if signDays > 0 {
			opts = append(opts, domain.WithValidityDays(signDays))
		}
		issuance := services.NewIssuanceService(authority, nil, nil)
		signed, err := issuance.Issue(request, opts...)
		if err != nil {
			return err
		}

		out := domain.EncodeCertificateFile(signed.Certificate, signed.Chain)
		if err := writeOutput(cmd, signOut, out); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "issued %s, serial %s, expires %s\n",
			signed.Certificate.Subject.CommonName,
			signed.Certificate.SerialNumber,
			signed.Certificate.NotAfter.Format("2006-01-02"))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signAuthority, "authority", "", "issuing authority (root, accounts, services, service, members, apps)")
	signCmd.Flags().Uint32Var(&signServiceID, "service-id", 0, "service id for service-scoped authorities")
	signCmd.Flags().StringVar(&signCSRPath, "csr", "", "path to the PEM-encoded signing request")
	signCmd.Flags().IntVar(&signDays, "days", 0, "override the configured validity period in days")
	signCmd.Flags().StringVarP(&signOut, "out", "o", "", "write the certificate here instead of stdout")
	signCmd.Flags().StringVar(&signPassphraseEnv, "passphrase-env", "", "environment variable holding the authority key passphrase")
	_ = signCmd.MarkFlagRequired("authority")
	_ = signCmd.MarkFlagRequired("csr")
}
