package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/errors"
)

var inspectCertPath string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the identity and validity of a certificate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(inspectCertPath)
		if err != nil {
			return errors.Wrap(errors.ErrIO, err)
		}
		certs, err := domain.ParseCertificatesPEM(data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, cert := range certs {
			if i > 0 {
				fmt.Fprintln(out)
			}
			sum := sha256.Sum256(cert.Raw)
			fmt.Fprintf(out, "subject:     %s\n", cert.Subject.CommonName)
			fmt.Fprintf(out, "issuer:      %s\n", cert.Issuer.CommonName)
			fmt.Fprintf(out, "serial:      %s\n", cert.SerialNumber)
			fmt.Fprintf(out, "not before:  %s\n", cert.NotBefore.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "not after:   %s\n", cert.NotAfter.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "is ca:       %t\n", cert.IsCA)
			fmt.Fprintf(out, "fingerprint: %s\n", hex.EncodeToString(sum[:]))

			if networkDomain != "" {
				network, err := domain.NewNetwork(networkDomain)
				if err != nil {
					return err
				}
				identity, err := domain.DecodeCommonName(cert.Subject.CommonName, network, nil)
				if err != nil {
					fmt.Fprintf(out, "identity:    not a %s identity (%v)\n", networkDomain, err)
					continue
				}
				fmt.Fprintf(out, "role:        %s\n", identity.Role)
				if identity.Identifier != nil {
					fmt.Fprintf(out, "identifier:  %s\n", identity.Identifier)
				}
				if identity.ServiceID != nil {
					fmt.Fprintf(out, "service id:  %d\n", *identity.ServiceID)
				}
			}
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectCertPath, "cert", "", "certificate file to inspect")
	_ = inspectCmd.MarkFlagRequired("cert")
}
