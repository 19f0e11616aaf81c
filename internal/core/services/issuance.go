package services

import (
	"log/slog"
	"time"

	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// IssuanceService fronts one issuing authority. It performs no extra
// validation of its own; it exists so every review rejection is logged with
// its taxonomy class (cryptographic failures are what security monitoring
// watches for) and so issuance volume is visible in metrics.
type IssuanceService struct {
	authority *domain.IssuingAuthority
	logger    *slog.Logger
	metrics   MetricsReporter
}

// NewIssuanceService wraps an authority. Logger and metrics may be nil.
func NewIssuanceService(authority *domain.IssuingAuthority, logger *slog.Logger, metrics MetricsReporter) *IssuanceService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &IssuanceService{authority: authority, logger: logger, metrics: metrics}
}

// Authority exposes the wrapped authority.
func (s *IssuanceService) Authority() *domain.IssuingAuthority {
	return s.authority
}

// Review runs the authority's request review, logging and recording the
// outcome.
func (s *IssuanceService) Review(request *domain.SigningRequest) (domain.EntityIdentity, error) {
	identity, err := s.authority.ReviewRequest(request)
	if err != nil {
		class := string(errors.ClassOf(err))
		s.logger.Warn("signing request rejected",
			"authority", s.authority.CommonName(),
			"common_name", request.CommonName(),
			"error_class", class,
			"error", err,
		)
		s.metrics.RecordReview(identity.Role.String(), "rejected", class)
		return domain.EntityIdentity{}, err
	}
	s.metrics.RecordReview(identity.Role.String(), "accepted", "")
	return identity, nil
}

// Issue reviews and signs a request, returning the certificate and the
// authority's chain.
func (s *IssuanceService) Issue(request *domain.SigningRequest, opts ...domain.SignOption) (*domain.SignedCertificate, error) {
	identity, err := s.Review(request)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	signed, err := s.authority.Sign(request, opts...)
	if err != nil {
		s.logger.Warn("signing failed",
			"authority", s.authority.CommonName(),
			"common_name", request.CommonName(),
			"error_class", string(errors.ClassOf(err)),
			"error", err,
		)
		return nil, err
	}

	s.metrics.RecordSign(identity.Role.String(), time.Since(start))
	s.metrics.UpdateCredentialExpiry(signed.Certificate.Subject.CommonName, signed.Certificate.NotAfter)
	s.logger.Info("certificate issued",
		"authority", s.authority.CommonName(),
		"common_name", signed.Certificate.Subject.CommonName,
		"role", identity.Role.String(),
		"serial", signed.Certificate.SerialNumber.String(),
		"not_after", signed.Certificate.NotAfter,
	)
	return signed, nil
}
