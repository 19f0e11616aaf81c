package domain

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

// Hierarchy wires the network's fixed authority graph together: the root
// signs the network-level accounts and services authorities, the services
// authority signs one authority per service, and each service authority
// signs its members and apps authorities. Authorities are resolved purely
// from network name and service id; there is no runtime discovery.
type Hierarchy struct {
	network Network
	config  *ports.Configuration
	store   ports.BlobStore
	logger  *slog.Logger
}

// NewHierarchy builds a hierarchy for the configured network. The store is
// handed to every credential the hierarchy constructs.
func NewHierarchy(network Network, config *ports.Configuration, store ports.BlobStore, logger *slog.Logger) *Hierarchy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hierarchy{network: network, config: config, store: store, logger: logger}
}

// Network returns the hierarchy's network.
func (h *Hierarchy) Network() Network { return h.network }

// policyFor converts a configured authority table into a policy value.
func (h *Hierarchy) policyFor(name string) (AuthorityPolicy, error) {
	cfg := h.config.Authority(name)
	accepted := make(map[Role]RolePolicy, len(cfg.Roles))
	signsCA := false
	for token, rc := range cfg.Roles {
		role, err := RoleFromToken(token)
		if err != nil {
			return AuthorityPolicy{}, err
		}
		if role.IsCA() {
			signsCA = true
		}
		accepted[role] = RolePolicy{ValidityDays: rc.ValidityDays, MaxChainDepth: rc.MaxChainDepth}
	}
	return AuthorityPolicy{
		AcceptedRoles:       accepted,
		MaxChainDepthBelow:  cfg.MaxChainDepth,
		SignsCACertificates: signsCA,
	}, nil
}

func (h *Hierarchy) newAuthority(name, commonName string, role Role, serviceID *uint32, trustRoot bool) (*IssuingAuthority, error) {
	policy, err := h.policyFor(name)
	if err != nil {
		return nil, err
	}
	cfg := h.config.Authority(name)
	credential := NewCredential(CredentialParams{
		CommonName:          commonName,
		Role:                role,
		ServiceID:           serviceID,
		Network:             h.network,
		TrustRoot:           trustRoot,
		IsCA:                true,
		MaxChainDepthBelow:  policy.MaxChainDepthBelow,
		SignsCACertificates: policy.SignsCACertificates,
		Store:               h.store,
		Logger:              h.logger,
		RenewWantedDays:     cfg.RenewWantedDays,
		RenewNeededDays:     cfg.RenewNeededDays,
	})
	return NewIssuingAuthority(credential, policy), nil
}

// Root returns the network's trust root authority. Its Common Name is the
// bare network domain and it is the only credential permitted to
// self-sign.
func (h *Hierarchy) Root() (*IssuingAuthority, error) {
	return h.newAuthority(ports.AuthorityRoot, h.network.RootCommonName(), RoleUnknown, nil, true)
}

// AccountsAuthority returns the network-level authority for account
// identities.
func (h *Hierarchy) AccountsAuthority() (*IssuingAuthority, error) {
	cn, err := EncodeCommonName(RoleAccountsCA, nil, nil, h.network)
	if err != nil {
		return nil, err
	}
	return h.newAuthority(ports.AuthorityAccounts, cn, RoleAccountsCA, nil, false)
}

// ServicesAuthority returns the network-level authority that signs
// per-service authorities.
func (h *Hierarchy) ServicesAuthority() (*IssuingAuthority, error) {
	cn, err := EncodeCommonName(RoleServicesCA, nil, nil, h.network)
	if err != nil {
		return nil, err
	}
	return h.newAuthority(ports.AuthorityServices, cn, RoleServicesCA, nil, false)
}

// ServiceAuthority returns the authority for one service.
func (h *Hierarchy) ServiceAuthority(serviceID uint32) (*IssuingAuthority, error) {
	cn, err := EncodeCommonName(RoleServiceCA, nil, &serviceID, h.network)
	if err != nil {
		return nil, err
	}
	return h.newAuthority(ports.AuthorityService, cn, RoleServiceCA, &serviceID, false)
}

// MembersAuthority returns the authority signing one service's member
// leaves.
func (h *Hierarchy) MembersAuthority(serviceID uint32) (*IssuingAuthority, error) {
	cn, err := EncodeCommonName(RoleMembersCA, nil, &serviceID, h.network)
	if err != nil {
		return nil, err
	}
	return h.newAuthority(ports.AuthorityMembers, cn, RoleMembersCA, &serviceID, false)
}

// AppsAuthority returns the authority signing one service's app leaves.
func (h *Hierarchy) AppsAuthority(serviceID uint32) (*IssuingAuthority, error) {
	cn, err := EncodeCommonName(RoleAppsCA, nil, &serviceID, h.network)
	if err != nil {
		return nil, err
	}
	return h.newAuthority(ports.AuthorityApps, cn, RoleAppsCA, &serviceID, false)
}

// AuthorityForRole resolves the authority expected to sign certificates of
// the given role. Service-scoped roles need the service id.
func (h *Hierarchy) AuthorityForRole(role Role, serviceID *uint32) (*IssuingAuthority, error) {
	needsService := func() (uint32, error) {
		if serviceID == nil {
			return 0, errors.Wrapf(errors.ErrInvalidIdentity, "role %q is service-scoped", role)
		}
		return *serviceID, nil
	}

	switch role {
	case RoleAccountsCA, RoleServicesCA:
		return h.Root()
	case RoleAccount, RoleAccountData:
		return h.AccountsAuthority()
	case RoleServiceCA, RoleNetworkData:
		return h.ServicesAuthority()
	case RoleMembersCA, RoleAppsCA, RoleService, RoleServiceData:
		sid, err := needsService()
		if err != nil {
			return nil, err
		}
		return h.ServiceAuthority(sid)
	case RoleMember, RoleMemberData:
		sid, err := needsService()
		if err != nil {
			return nil, err
		}
		return h.MembersAuthority(sid)
	case RoleApp, RoleAppData:
		sid, err := needsService()
		if err != nil {
			return nil, err
		}
		return h.AppsAuthority(sid)
	}
	return nil, errors.Wrapf(errors.ErrUnknownRole, "no authority signs role %q", role)
}

// IssuerCommonName reconstructs the Common Name of the authority expected
// to have signed a certificate of the given role, without touching storage.
func (h *Hierarchy) IssuerCommonName(role Role, serviceID *uint32) (string, error) {
	switch role {
	case RoleAccountsCA, RoleServicesCA:
		return h.network.RootCommonName(), nil
	case RoleAccount, RoleAccountData:
		return EncodeCommonName(RoleAccountsCA, nil, nil, h.network)
	case RoleServiceCA, RoleNetworkData:
		return EncodeCommonName(RoleServicesCA, nil, nil, h.network)
	case RoleMembersCA, RoleAppsCA, RoleService, RoleServiceData:
		if serviceID == nil {
			return "", errors.Wrapf(errors.ErrInvalidIdentity, "role %q is service-scoped", role)
		}
		return EncodeCommonName(RoleServiceCA, nil, serviceID, h.network)
	case RoleMember, RoleMemberData:
		if serviceID == nil {
			return "", errors.Wrapf(errors.ErrInvalidIdentity, "role %q is service-scoped", role)
		}
		return EncodeCommonName(RoleMembersCA, nil, serviceID, h.network)
	case RoleApp, RoleAppData:
		if serviceID == nil {
			return "", errors.Wrapf(errors.ErrInvalidIdentity, "role %q is service-scoped", role)
		}
		return EncodeCommonName(RoleAppsCA, nil, serviceID, h.network)
	}
	return "", errors.Wrapf(errors.ErrUnknownRole, "no issuer defined for role %q", role)
}

// CredentialFor constructs the leaf credential for a (role, identifier,
// service id) tuple, wired to the hierarchy's storage.
func (h *Hierarchy) CredentialFor(role Role, identifier *uuid.UUID, serviceID *uint32) (*Credential, error) {
	cn, err := EncodeCommonName(role, identifier, serviceID, h.network)
	if err != nil {
		return nil, err
	}
	return NewCredential(CredentialParams{
		CommonName: cn,
		Role:       role,
		ServiceID:  serviceID,
		Network:    h.network,
		Store:      h.store,
		Logger:     h.logger,
	}), nil
}
