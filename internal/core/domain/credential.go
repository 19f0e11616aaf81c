package domain

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"log/slog"
	"math/big"
	"path"
	"sync"
	"time"

	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

const (
	certFileName = "cert.pem"
	keyFileName  = "key.pem"

	// Default advisory thresholds for the "expires soon" notices emitted on
	// load. Authorities override these from configuration.
	defaultRenewWantedDays = 90
	defaultRenewNeededDays = 30
)

// Credential holds an entity's key pair, its certificate, and the non-root
// portion of its trust chain. A Credential starts empty and is initialized
// exactly once: self-signed (trust root only), completed from a signing
// response, or loaded from persisted bytes.
//
// Instances are single-writer: concurrent use is safe only because every
// mutating operation holds the instance mutex, matching the discipline the
// surrounding process is required to keep.
type Credential struct {
	mu sync.Mutex

	commonName string
	role       Role
	serviceID  *uint32
	network    Network

	key   crypto.Signer
	cert  *x509.Certificate
	chain []*x509.Certificate

	selfSigned bool
	trustRoot  bool

	// Policy fields. For a plain leaf credential these stay zero.
	isCA                bool
	maxChainDepthBelow  int
	signsCACertificates bool

	store      ports.BlobStore
	pathPrefix string
	logger     *slog.Logger

	renewWanted time.Duration
	renewNeeded time.Duration
}

// CredentialParams configures a new Credential.
type CredentialParams struct {
	CommonName string
	Role       Role
	ServiceID  *uint32
	Network    Network

	// TrustRoot marks the single credential allowed to self-sign.
	TrustRoot bool

	// Policy fields for certifying authorities.
	IsCA                bool
	MaxChainDepthBelow  int
	SignsCACertificates bool

	// Store and PathPrefix locate persisted material; both may be empty for
	// credentials that are never loaded or saved.
	Store      ports.BlobStore
	PathPrefix string

	Logger *slog.Logger

	// Advisory renewal thresholds in days; zero selects the defaults.
	RenewWantedDays int
	RenewNeededDays int
}

// NewCredential constructs an empty Credential.
func NewCredential(p CredentialParams) *Credential {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	wanted := p.RenewWantedDays
	if wanted == 0 {
		wanted = defaultRenewWantedDays
	}
	needed := p.RenewNeededDays
	if needed == 0 {
		needed = defaultRenewNeededDays
	}
	prefix := p.PathPrefix
	if prefix == "" {
		prefix = p.CommonName
	}
	return &Credential{
		commonName:          p.CommonName,
		role:                p.Role,
		serviceID:           p.ServiceID,
		network:             p.Network,
		trustRoot:           p.TrustRoot,
		isCA:                p.IsCA,
		maxChainDepthBelow:  p.MaxChainDepthBelow,
		signsCACertificates: p.SignsCACertificates,
		store:               p.Store,
		pathPrefix:          prefix,
		logger:              logger,
		renewWanted:         time.Duration(wanted) * 24 * time.Hour,
		renewNeeded:         time.Duration(needed) * 24 * time.Hour,
	}
}

// CommonName returns the credential's Common Name.
func (c *Credential) CommonName() string { return c.commonName }

// Role returns the credential's identity role.
func (c *Credential) Role() Role { return c.role }

// ServiceID returns the credential's service id, or nil when the role is
// not service-scoped.
func (c *Credential) ServiceID() *uint32 { return c.serviceID }

// Network returns the credential's network.
func (c *Credential) Network() Network { return c.network }

// IsCA reports whether the credential's certificate certifies others.
func (c *Credential) IsCA() bool { return c.isCA }

// IsSelfSigned reports whether the held certificate is self-signed.
func (c *Credential) IsSelfSigned() bool { return c.selfSigned }

// MaxChainDepthBelow returns how many CA links may exist below this
// credential. It strictly decreases moving away from the root.
func (c *Credential) MaxChainDepthBelow() int { return c.maxChainDepthBelow }

// SignsCACertificates reports whether this credential issues CA
// certificates (as opposed to leaves only).
func (c *Credential) SignsCACertificates() bool { return c.signsCACertificates }

// Certificate returns the held certificate, or nil before initialization.
func (c *Credential) Certificate() *x509.Certificate { return c.cert }

// Chain returns the non-root intermediate chain, closest-to-leaf first.
func (c *Credential) Chain() []*x509.Certificate {
	return append([]*x509.Certificate(nil), c.chain...)
}

// HasKey reports whether private key material is present.
func (c *Credential) HasKey() bool { return c.key != nil }

// Signer exposes the private key for signing operations.
func (c *Credential) Signer() crypto.Signer { return c.key }

// Fingerprint returns the SHA-256 fingerprint of the held certificate, or
// an empty string before initialization.
func (c *Credential) Fingerprint() string {
	if c.cert == nil {
		return ""
	}
	sum := sha256.Sum256(c.cert.Raw)
	return hex.EncodeToString(sum[:])
}

// CreateSelfSigned generates a key pair and a self-signed certificate. It
// is permitted only on the credential marked as the trust root and fails
// with ALREADY_INITIALIZED when key or certificate material exists.
func (c *Credential) CreateSelfSigned(validityDays int, isCA bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.trustRoot {
		return errors.Wrapf(errors.ErrNotACertifyingAuthority,
			"only the trust root may self-sign, %q is not it", c.commonName)
	}
	if c.key != nil || c.cert != nil {
		return errors.Wrapf(errors.ErrAlreadyInitialized, "credential %q", c.commonName)
	}

	key, err := GenerateKey()
	if err != nil {
		return err
	}

	serial, err := newSerialNumber()
	if err != nil {
		return err
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: c.commonName},
		DNSNames:     []string{c.commonName},
		NotBefore:    now,
		NotAfter:     now.Add(time.Duration(validityDays) * 24 * time.Hour),

		KeyUsage: x509.KeyUsageDigitalSignature,

		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}
	if isCA {
		template.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
		template.MaxPathLen = c.maxChainDepthBelow
		template.MaxPathLenZero = c.maxChainDepthBelow == 0
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return errors.Wrap(errors.ErrIO, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return errors.Wrap(errors.ErrIO, err)
	}

	c.key = key
	c.cert = cert
	c.chain = nil
	c.selfSigned = true
	c.isCA = isCA
	return nil
}

// CreateRequest generates a signing request for this credential's Common
// Name. The request's subject-alternative-name list is the Common Name
// followed by subjectAltNames. Unless renew is set, an already-initialized
// credential fails with ALREADY_INITIALIZED; with renew, an existing key is
// reused.
func (c *Credential) CreateRequest(subjectAltNames []string, renew bool) (*SigningRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !renew && (c.key != nil || c.cert != nil) {
		return nil, errors.Wrapf(errors.ErrAlreadyInitialized, "credential %q (pass renew to reuse the key)", c.commonName)
	}

	key := c.key
	if key == nil {
		generated, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		key = generated
	}

	keyUsage := x509.KeyUsageDigitalSignature
	if c.role.IsCA() {
		keyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}
	kuExt, err := MarshalKeyUsageExtension(keyUsage)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	extensions := []pkix.Extension{kuExt}
	if !c.role.IsCA() {
		ekuExt, err := MarshalExtKeyUsageExtension([]x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth})
		if err != nil {
			return nil, err
		}
		extensions = append(extensions, ekuExt)
	}

	template := &x509.CertificateRequest{
		Subject:         pkix.Name{CommonName: c.commonName},
		DNSNames:        append([]string{c.commonName}, subjectAltNames...),
		ExtraExtensions: extensions,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}

	c.key = key
	return NewSigningRequest(csr), nil
}

// AbsorbSigned stores the certificate and intermediate chain returned by an
// authority. The chain never includes the root.
func (c *Credential) AbsorbSigned(cert *x509.Certificate, chain []*x509.Certificate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cert == nil {
		return errors.Wrapf(errors.ErrInvalidIdentity, "signed certificate is nil")
	}
	if c.key != nil && !PublicKeysEqual(cert.PublicKey, c.key.Public()) {
		return errors.Wrapf(errors.ErrInvalidIdentity,
			"signed certificate public key does not match credential %q", c.commonName)
	}

	c.cert = cert
	c.chain = append([]*x509.Certificate(nil), chain...)
	c.selfSigned = cert.Subject.CommonName == cert.Issuer.CommonName && len(chain) == 0
	c.isCA = cert.BasicConstraintsValid && cert.IsCA
	return nil
}

// Load reads the credential's PEM material through the storage abstraction.
// The certificate file holds the leaf followed by its non-root chain. With
// withPrivateKey, the key file is read and decrypted with the passphrase.
// Emits advisory "expires soon" notices when the remaining lifetime drops
// below the configured thresholds; these never fail the load.
func (c *Credential) Load(withPrivateKey bool, passphrase []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return errors.Wrapf(errors.ErrIO, "credential %q has no storage attached", c.commonName)
	}
	if c.cert != nil || c.key != nil {
		return errors.Wrapf(errors.ErrAlreadyInitialized, "credential %q", c.commonName)
	}

	certData, err := c.store.Read(c.certPath())
	if err != nil {
		return err
	}
	certs, err := ParseCertificatesPEM(certData)
	if err != nil {
		return err
	}
	leaf, chain := certs[0], certs[1:]

	if withPrivateKey {
		keyData, err := c.store.Read(c.keyPath())
		if err != nil {
			return err
		}
		key, err := ParsePrivateKeyPEM(keyData, passphrase)
		if err != nil {
			return err
		}
		if !PublicKeysEqual(leaf.PublicKey, key.Public()) {
			return errors.Wrapf(errors.ErrIO,
				"private key does not match certificate for %q", c.commonName)
		}
		c.key = key
	}

	c.cert = leaf
	c.chain = chain
	c.selfSigned = leaf.Subject.CommonName == leaf.Issuer.CommonName && len(chain) == 0
	c.isCA = leaf.BasicConstraintsValid && leaf.IsCA
	if c.commonName == "" {
		c.commonName = leaf.Subject.CommonName
	}

	c.noteExpiry(time.Now())
	return nil
}

// noteExpiry logs the advisory renewal notices. Informational only; it
// never blocks an operation.
func (c *Credential) noteExpiry(now time.Time) {
	remaining := c.cert.NotAfter.Sub(now)
	switch {
	case remaining <= c.renewNeeded:
		c.logger.Warn("certificate expires very soon",
			"common_name", c.commonName,
			"not_after", c.cert.NotAfter,
			"remaining", remaining.String(),
		)
	case remaining <= c.renewWanted:
		c.logger.Warn("certificate expires soon",
			"common_name", c.commonName,
			"not_after", c.cert.NotAfter,
			"remaining", remaining.String(),
		)
	}
}

// Save persists the certificate file (leaf + chain) and, when a private key
// is held, the key file encrypted with the passphrase. Fails with
// ALREADY_EXISTS unless overwrite is set. The key is written before the
// certificate, so an interrupted save never leaves a certificate whose key
// was lost.
func (c *Credential) Save(passphrase []byte, overwrite bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return errors.Wrapf(errors.ErrIO, "credential %q has no storage attached", c.commonName)
	}
	if c.cert == nil {
		return errors.Wrapf(errors.ErrInvalidIdentity, "credential %q holds no certificate to save", c.commonName)
	}

	if !overwrite {
		exists, err := c.store.Exists(c.certPath())
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(errors.ErrAlreadyExists, "%q", c.certPath())
		}
	}

	if c.key != nil {
		keyPEM, err := MarshalPrivateKeyPEM(c.key, passphrase)
		if err != nil {
			return err
		}
		if err := c.store.Write(c.keyPath(), keyPEM); err != nil {
			return err
		}
	}
	return c.store.Write(c.certPath(), EncodeCertificateFile(c.cert, c.chain))
}

// ChainAsText renders the intermediate chain as concatenated PEM blocks.
func (c *Credential) ChainAsText() string {
	var out []byte
	for _, cert := range c.chain {
		out = append(out, EncodeCertificatePEM(cert)...)
	}
	return string(out)
}

// CertificateAsBytes returns the held certificate as a PEM block.
func (c *Credential) CertificateAsBytes() ([]byte, error) {
	if c.cert == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "credential %q holds no certificate", c.commonName)
	}
	return EncodeCertificatePEM(c.cert), nil
}

// PrivateKeyAsBytes returns the held private key as PKCS#8 PEM, encrypted
// when a passphrase is supplied.
func (c *Credential) PrivateKeyAsBytes(passphrase []byte) ([]byte, error) {
	if c.key == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "credential %q holds no private key", c.commonName)
	}
	return MarshalPrivateKeyPEM(c.key, passphrase)
}

func (c *Credential) certPath() string { return path.Join(c.pathPrefix, certFileName) }
func (c *Credential) keyPath() string  { return path.Join(c.pathPrefix, keyFileName) }

// newSerialNumber draws a fresh random 128-bit certificate serial.
func newSerialNumber() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	return serial, nil
}
