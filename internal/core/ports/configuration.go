package ports

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// Configuration carries everything the hierarchy needs that is data rather
// than algorithm: the network domain, the storage root, and the
// per-authority issuance tables. Defaults reproduce the numbers existing
// deployments interoperate with; overriding them is a deployment decision,
// not a code change.
type Configuration struct {
	Network NetworkConfig `yaml:"network" mapstructure:"network" validate:"required"`

	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Authorities maps authority names (root, accounts, services, service,
	// members, apps) to their issuance policies.
	Authorities map[string]AuthorityConfig `yaml:"authorities" mapstructure:"authorities" validate:"required,dive"`
}

// NetworkConfig names the federated network.
type NetworkConfig struct {
	// Domain is the DNS suffix every certificate name on this network ends in.
	Domain string `yaml:"domain" mapstructure:"domain" validate:"required,network_domain"`
}

// StorageConfig locates persisted credential material.
type StorageConfig struct {
	// Root is the path prefix all credential blobs live under.
	Root string `yaml:"root" mapstructure:"root"`
}

// AuthorityConfig is one authority's issuance policy: which roles it signs,
// for how long, how deep the chain below it may grow, and when its own
// certificate should be renewed.
type AuthorityConfig struct {
	// Roles maps role tokens to issuance settings. A role absent from the
	// map is rejected with ROLE_NOT_ACCEPTED.
	Roles map[string]RoleIssuanceConfig `yaml:"roles" mapstructure:"roles" validate:"required,dive"`

	// MaxChainDepth is the number of CA links permitted below this
	// authority. Zero means it signs leaves only.
	MaxChainDepth int `yaml:"max_chain_depth" mapstructure:"max_chain_depth" validate:"gte=0,lte=3"`

	// SelfValidityDays applies only to the root: the lifetime of its
	// self-signed certificate.
	SelfValidityDays int `yaml:"self_validity_days,omitempty" mapstructure:"self_validity_days" validate:"gte=0"`

	// RenewWantedDays and RenewNeededDays are the advisory thresholds for
	// the authority's own certificate: remaining lifetimes below them log
	// "expires soon" and "expires very soon" respectively.
	RenewWantedDays int `yaml:"renew_wanted_days" mapstructure:"renew_wanted_days" validate:"gte=0"`
	RenewNeededDays int `yaml:"renew_needed_days" mapstructure:"renew_needed_days" validate:"gte=0"`
}

// RoleIssuanceConfig is the per-role row of an authority's policy table.
type RoleIssuanceConfig struct {
	// ValidityDays is how long certificates issued for the role live.
	ValidityDays int `yaml:"validity_days" mapstructure:"validity_days" validate:"required,gt=0"`

	// MaxChainDepth is stamped into the Basic Constraints of issued CA
	// certificates. Ignored for leaf roles.
	MaxChainDepth int `yaml:"max_chain_depth,omitempty" mapstructure:"max_chain_depth" validate:"gte=0"`
}

// Authority names used as keys in Configuration.Authorities.
const (
	AuthorityRoot     = "root"
	AuthorityAccounts = "accounts"
	AuthorityServices = "services"
	AuthorityService  = "service"
	AuthorityMembers  = "members"
	AuthorityApps     = "apps"
)

// DefaultConfiguration returns the interoperable defaults: a ~30-year
// self-signed root signing the network authorities for two years, two-year
// subordinate CA issuance, one-year leaves, and six-month/three-month
// renewal windows on the long-lived authorities.
func DefaultConfiguration(networkDomain string) *Configuration {
	return &Configuration{
		Network: NetworkConfig{Domain: networkDomain},
		Storage: StorageConfig{Root: "."},
		Authorities: map[string]AuthorityConfig{
			AuthorityRoot: {
				Roles: map[string]RoleIssuanceConfig{
					"accounts-ca": {ValidityDays: 730, MaxChainDepth: 0},
					"services-ca": {ValidityDays: 730, MaxChainDepth: 2},
				},
				MaxChainDepth:    3,
				SelfValidityDays: 10950,
			},
			AuthorityAccounts: {
				Roles: map[string]RoleIssuanceConfig{
					"account":      {ValidityDays: 365},
					"account-data": {ValidityDays: 365},
				},
				MaxChainDepth:   0,
				RenewWantedDays: 180,
				RenewNeededDays: 90,
			},
			AuthorityServices: {
				Roles: map[string]RoleIssuanceConfig{
					"service-ca":   {ValidityDays: 730, MaxChainDepth: 1},
					"network-data": {ValidityDays: 365},
				},
				MaxChainDepth:   2,
				RenewWantedDays: 180,
				RenewNeededDays: 90,
			},
			AuthorityService: {
				Roles: map[string]RoleIssuanceConfig{
					"members-ca":   {ValidityDays: 730, MaxChainDepth: 0},
					"apps-ca":      {ValidityDays: 730, MaxChainDepth: 0},
					"service":      {ValidityDays: 365},
					"service-data": {ValidityDays: 365},
				},
				MaxChainDepth:   1,
				RenewWantedDays: 180,
				RenewNeededDays: 90,
			},
			AuthorityMembers: {
				Roles: map[string]RoleIssuanceConfig{
					"member":      {ValidityDays: 365},
					"member-data": {ValidityDays: 365},
				},
				MaxChainDepth:   0,
				RenewWantedDays: 90,
				RenewNeededDays: 30,
			},
			AuthorityApps: {
				Roles: map[string]RoleIssuanceConfig{
					"app":      {ValidityDays: 365},
					"app-data": {ValidityDays: 365},
				},
				MaxChainDepth:   0,
				RenewWantedDays: 90,
				RenewNeededDays: 30,
			},
		},
	}
}

var configDomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

func newConfigValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("network_domain", func(fl validator.FieldLevel) bool {
		domain := strings.TrimSpace(fl.Field().String())
		if domain == "" {
			return true // handled by the required tag
		}
		return configDomainPattern.MatchString(strings.ToLower(domain))
	})
	return validate
}

// Validate checks the configuration's structural validity plus the
// cross-field constraints the struct tags cannot express.
func (c *Configuration) Validate() error {
	if c == nil {
		return &errors.ValidationError{
			Field:   "configuration",
			Value:   nil,
			Message: "configuration cannot be nil",
		}
	}

	if err := newConfigValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, authority := range c.Authorities {
		if authority.RenewNeededDays > authority.RenewWantedDays {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("authorities.%s", name),
				Value:   authority.RenewNeededDays,
				Message: "renew_needed_days must not exceed renew_wanted_days",
			}
		}
		for token := range authority.Roles {
			if token == "" {
				return &errors.ValidationError{
					Field:   fmt.Sprintf("authorities.%s.roles", name),
					Value:   token,
					Message: "role token cannot be empty",
				}
			}
		}
	}
	return nil
}

// Authority returns the named authority's configuration, falling back to
// the defaults when the name is absent.
func (c *Configuration) Authority(name string) AuthorityConfig {
	if a, ok := c.Authorities[name]; ok {
		return a
	}
	return DefaultConfiguration(c.Network.Domain).Authorities[name]
}
