package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// maxServiceID is the largest service id the grammar admits.
const maxServiceID = math.MaxUint32

// EntityIdentity is the decoded form of a certificate Common Name: who the
// certificate names, in which role, and (when service-scoped) for which
// service.
type EntityIdentity struct {
	Role       Role
	Identifier *uuid.UUID
	ServiceID  *uint32
}

// String renders the identity for logs; it is not the wire encoding.
func (e EntityIdentity) String() string {
	out := e.Role.String()
	if e.Identifier != nil {
		out += " " + e.Identifier.String()
	}
	if e.ServiceID != nil {
		out += fmt.Sprintf(" (service %d)", *e.ServiceID)
	}
	return out
}

// Equal reports whether two identities name the same entity.
func (e EntityIdentity) Equal(other EntityIdentity) bool {
	if e.Role != other.Role {
		return false
	}
	if (e.Identifier == nil) != (other.Identifier == nil) {
		return false
	}
	if e.Identifier != nil && *e.Identifier != *other.Identifier {
		return false
	}
	if (e.ServiceID == nil) != (other.ServiceID == nil) {
		return false
	}
	if e.ServiceID != nil && *e.ServiceID != *other.ServiceID {
		return false
	}
	return true
}

// EncodeCommonName builds the Common Name for an identity on the given
// network:
//
//	<identifier-or-role-token>.<role-token>[-<service_id>].<network-domain>
//
// It fails with INVALID_IDENTITY when the role requires an identifier or
// service id that is missing, or carries one it must not.
func EncodeCommonName(role Role, identifier *uuid.UUID, serviceID *uint32, network Network) (string, error) {
	spec, ok := role.spec()
	if !ok {
		return "", errors.Wrapf(errors.ErrUnknownRole, "role %d is not encodable", role)
	}
	if network.IsZero() {
		return "", errors.Wrapf(errors.ErrInvalidIdentity, "network is unset")
	}
	if spec.requiresIdentifier && identifier == nil {
		return "", errors.Wrapf(errors.ErrInvalidIdentity, "role %q requires an identifier", spec.token)
	}
	if !spec.requiresIdentifier && identifier != nil {
		return "", errors.Wrapf(errors.ErrInvalidIdentity, "role %q does not take an identifier", spec.token)
	}
	if spec.requiresServiceID && serviceID == nil {
		return "", errors.Wrapf(errors.ErrInvalidIdentity, "role %q requires a service id", spec.token)
	}
	if !spec.requiresServiceID && serviceID != nil {
		return "", errors.Wrapf(errors.ErrInvalidIdentity, "role %q does not take a service id", spec.token)
	}

	label := spec.token
	if serviceID != nil {
		label = fmt.Sprintf("%s-%d", spec.token, *serviceID)
	}
	if identifier != nil {
		return fmt.Sprintf("%s.%s.%s", identifier.String(), label, network.Domain()), nil
	}
	return fmt.Sprintf("%s.%s", label, network.Domain()), nil
}

// DecodeCommonName parses a Common Name against the identity grammar.
// expectCA constrains the kind of role the caller will accept: a CA role
// where a leaf role is expected (or vice versa) fails with
// ROLE_NOT_PERMITTED_HERE. Pass nil to accept either kind.
func DecodeCommonName(commonName string, network Network, expectCA *bool) (EntityIdentity, error) {
	if network.IsZero() {
		return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName, "network is unset")
	}
	suffix := "." + network.Domain()
	if !strings.HasSuffix(commonName, suffix) {
		return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName,
			"%q does not end in network domain %q", commonName, network.Domain())
	}

	rest := strings.TrimSuffix(commonName, suffix)
	labels := strings.Split(rest, ".")
	if len(labels) < 1 || len(labels) > 2 || labels[0] == "" {
		return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName,
			"%q has %d labels ahead of the network domain, want 1 or 2", commonName, len(labels))
	}

	roleLabel := labels[len(labels)-1]
	role, serviceID, err := matchRoleLabel(roleLabel)
	if err != nil {
		return EntityIdentity{}, err
	}
	spec, _ := role.spec()

	if spec.requiresServiceID && serviceID == nil {
		return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName,
			"role %q requires a service id suffix", spec.token)
	}
	if !spec.requiresServiceID && serviceID != nil {
		return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName,
			"role %q does not take a service id suffix", spec.token)
	}

	var identifier *uuid.UUID
	if spec.requiresIdentifier {
		if len(labels) != 2 {
			return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName,
				"role %q requires an identifier label", spec.token)
		}
		id, err := uuid.Parse(labels[0])
		if err != nil {
			return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName,
				"identifier %q is not a UUID", labels[0])
		}
		identifier = &id
	} else if len(labels) != 1 {
		return EntityIdentity{}, errors.Wrapf(errors.ErrMalformedName,
			"role %q does not take an identifier label", spec.token)
	}

	if expectCA != nil && *expectCA != spec.isCA {
		return EntityIdentity{}, errors.Wrapf(errors.ErrRoleNotPermittedHere,
			"role %q (ca=%t) where ca=%t was expected", spec.token, spec.isCA, *expectCA)
	}

	return EntityIdentity{Role: role, Identifier: identifier, ServiceID: serviceID}, nil
}
