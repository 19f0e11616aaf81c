package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
	"github.com/trustfabric/trustfabric/internal/core/services"
)

var (
	initOverwrite     bool
	initServiceID     uint32
	initPassphraseEnv string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the certificate-authority hierarchy",
}

var initRootCmd = &cobra.Command{
	Use:   "root",
	Short: "Create the network's self-signed trust root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, hierarchy, err := loadEnvironment()
		if err != nil {
			return err
		}
		root, err := hierarchy.Root()
		if err != nil {
			return err
		}

		validity := cfg.Authority(ports.AuthorityRoot).SelfValidityDays
		if err := root.CreateSelfSigned(validity, true); err != nil {
			return err
		}
		if err := root.Save(passphraseFromEnv(initPassphraseEnv), initOverwrite); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "trust root created: %s\n", root.CommonName())
		fmt.Fprintf(cmd.OutOrStdout(), "fingerprint: %s\n", root.Fingerprint())
		return nil
	},
}

var initAuthorityCmd = &cobra.Command{
	Use:   "authority <accounts|services|service|members|apps>",
	Short: "Create a subordinate authority signed by its parent",
	Long: `Create a subordinate authority signed by its parent.

The parent is resolved from the hierarchy: accounts and services are
signed by the trust root, each per-service authority by the services
authority, and members and apps authorities by their service's
authority. The parent's private key is loaded from storage.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"accounts", "services", "service", "members", "apps"},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, hierarchy, err := loadEnvironment()
		if err != nil {
			return err
		}

		authority, err := authorityByName(hierarchy, args[0], initServiceID, cmd.Flags().Changed("service-id"))
		if err != nil {
			return err
		}

		parent, err := hierarchy.AuthorityForRole(authority.Role(), authority.ServiceID())
		if err != nil {
			return err
		}
		passphrase := passphraseFromEnv(initPassphraseEnv)
		if err := parent.Load(true, passphrase); err != nil {
			return err
		}

		request, err := authority.CreateRequest(nil, false)
		if err != nil {
			return err
		}
		issuance := services.NewIssuanceService(parent, nil, nil)
		signed, err := issuance.Issue(request)
		if err != nil {
			return err
		}
		if err := authority.AbsorbSigned(signed.Certificate, signed.Chain); err != nil {
			return err
		}
		if err := authority.Save(passphrase, initOverwrite); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "authority created: %s\n", authority.CommonName())
		fmt.Fprintf(cmd.OutOrStdout(), "signed by: %s\n", parent.CommonName())
		fmt.Fprintf(cmd.OutOrStdout(), "expires: %s\n", signed.Certificate.NotAfter.Format("2006-01-02"))
		return nil
	},
}

// authorityByName maps a CLI authority name to its hierarchy node,
// enforcing the service-id requirement for service-scoped authorities.
func authorityByName(hierarchy *domain.Hierarchy, name string, serviceID uint32, serviceIDSet bool) (*domain.IssuingAuthority, error) {
	serviceScoped := name == ports.AuthorityService || name == ports.AuthorityMembers || name == ports.AuthorityApps
	if serviceScoped && !serviceIDSet {
		return nil, errors.Wrapf(errors.ErrInvalidIdentity, "authority %q needs --service-id", name)
	}
	if !serviceScoped && serviceIDSet {
		return nil, errors.Wrapf(errors.ErrInvalidIdentity, "authority %q is not service-scoped", name)
	}

	switch name {
	case ports.AuthorityRoot:
		return hierarchy.Root()
	case ports.AuthorityAccounts:
		return hierarchy.AccountsAuthority()
	case ports.AuthorityServices:
		return hierarchy.ServicesAuthority()
	case ports.AuthorityService:
		return hierarchy.ServiceAuthority(serviceID)
	case ports.AuthorityMembers:
		return hierarchy.MembersAuthority(serviceID)
	case ports.AuthorityApps:
		return hierarchy.AppsAuthority(serviceID)
	}
	return nil, fmt.Errorf("unknown authority %q", name)
}

func init() {
	initCmd.PersistentFlags().BoolVar(&initOverwrite, "overwrite", false, "replace existing credential material")
	initCmd.PersistentFlags().StringVar(&initPassphraseEnv, "passphrase-env", "", "environment variable holding the key passphrase")
	initAuthorityCmd.Flags().Uint32Var(&initServiceID, "service-id", 0, "service id for service-scoped authorities")

	initCmd.AddCommand(initRootCmd)
	initCmd.AddCommand(initAuthorityCmd)
}
