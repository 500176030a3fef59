// Package services contains server-side business logic. AccountService
// handles registration and authentication and mints account tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/dmitrijs2005/weatherdash/internal/dbx"
	"github.com/dmitrijs2005/weatherdash/internal/logging"
	"github.com/dmitrijs2005/weatherdash/internal/server/models"
	"github.com/dmitrijs2005/weatherdash/internal/server/observability"
	"github.com/dmitrijs2005/weatherdash/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/weatherdash/internal/server/services"

// TokenIssuer is implemented by *auth.Issuer.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AccountMetrics is implemented by *observability.Metrics.
type AccountMetrics interface {
	ObserveRegistration(result string)
	ObserveAuthentication(result string)
}

// RegisterInput is a sign-up request as received from a client.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = models.NormalizeEmail(in.Email)
}

// Validate checks field presence, lengths and email syntax. Keys of the
// returned validation.Errors match the JSON field names.
func (in RegisterInput) Validate() error {
	return validation.Errors{
		"firstName": validation.Validate(in.FirstName, validation.Required, validation.RuneLength(1, models.NameMaxLength)),
		"lastName":  validation.Validate(in.LastName, validation.Required, validation.RuneLength(1, models.NameMaxLength)),
		"email":     validation.Validate(in.Email, validation.Required, validation.Length(3, models.EmailMaxLength), is.Email),
		"password":  validation.Validate(in.Password, validation.Required, validation.RuneLength(models.PasswordMinLength, models.PasswordMaxLength)),
	}.Filter()
}

// AuthResult is returned by a successful Register or Authenticate.
type AuthResult struct {
	Token string
	User  *models.Profile
}

type AccountService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	hashes      *HashPool
	issuer      TokenIssuer
	logger      logging.Logger
	metrics     AccountMetrics
	tracer      trace.Tracer

	// dummyDigest is verified against when the email is unknown so that
	// both failure paths cost one hash.
	dummyDigest string
}

// NewAccountService wires the service. metrics may be nil.
func NewAccountService(db dbx.DBTX, m repomanager.RepositoryManager, hashes *HashPool, issuer TokenIssuer,
	logger logging.Logger, metrics AccountMetrics) (*AccountService, error) {

	seed, err := common.GenerateRandBytes(32)
	if err != nil {
		return nil, fmt.Errorf("dummy password: %w", err)
	}
	dummy, err := hashes.Hash(context.Background(), seed)
	if err != nil {
		return nil, fmt.Errorf("dummy digest: %w", err)
	}

	if metrics == nil {
		metrics = (*observability.Metrics)(nil)
	}

	return &AccountService{
		db:          db,
		repomanager: m,
		hashes:      hashes,
		issuer:      issuer,
		logger:      logger,
		metrics:     metrics,
		tracer:      otel.Tracer(tracerName),
		dummyDigest: dummy,
	}, nil
}

// Register creates an account and returns a token for it. Errors:
// common.ErrValidation (wrapped with field detail), common.ErrAccountExists,
// common.ErrorInternal.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.Register")
	defer span.End()

	in.normalize()
	if err := in.Validate(); err != nil {
		s.metrics.ObserveRegistration(observability.ResultInvalidInput)
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		s.metrics.ObserveRegistration(observability.ResultDuplicate)
		return nil, common.ErrAccountExists
	case !errors.Is(err, common.ErrorNotFound):
		s.metrics.ObserveRegistration(observability.ResultServerFault)
		return nil, s.fault(ctx, span, "register: lookup failed", err)
	}

	password := []byte(in.Password)
	digest, err := s.hashes.Hash(ctx, password)
	common.WipeByteArray(password)
	if err != nil {
		s.metrics.ObserveRegistration(observability.ResultServerFault)
		return nil, s.fault(ctx, span, "register: hashing failed", err)
	}

	user, err := repo.Create(ctx, &models.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		PasswordDigest: digest,
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAccountExists):
			// lost a race with a concurrent registration
			s.metrics.ObserveRegistration(observability.ResultDuplicate)
			return nil, common.ErrAccountExists
		case errors.Is(err, common.ErrValidation):
			s.metrics.ObserveRegistration(observability.ResultInvalidInput)
			return nil, err
		}
		s.metrics.ObserveRegistration(observability.ResultServerFault)
		return nil, s.fault(ctx, span, "register: insert failed", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.metrics.ObserveRegistration(observability.ResultServerFault)
		return nil, s.fault(ctx, span, "register: token issue failed", err)
	}

	s.metrics.ObserveRegistration(observability.ResultSuccess)
	s.logger.Info(ctx, "account registered", "user_id", user.ID)

	return &AuthResult{Token: token, User: user.Profile()}, nil
}

// Authenticate checks email and password and returns a fresh token.
// An unknown email and a wrong password both yield
// common.ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.Authenticate")
	defer span.End()

	repo := s.repomanager.Users(s.db)

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.metrics.ObserveAuthentication(observability.ResultServerFault)
			return nil, s.fault(ctx, span, "authenticate: lookup failed", err)
		}
		if _, err := s.hashes.Verify(ctx, pw, s.dummyDigest); err != nil {
			s.metrics.ObserveAuthentication(observability.ResultServerFault)
			return nil, s.fault(ctx, span, "authenticate: verify failed", err)
		}
		s.metrics.ObserveAuthentication(observability.ResultInvalidCredentials)
		return nil, common.ErrInvalidCredentials
	}

	ok, err := s.hashes.Verify(ctx, pw, user.PasswordDigest)
	if err != nil {
		s.metrics.ObserveAuthentication(observability.ResultServerFault)
		return nil, s.fault(ctx, span, "authenticate: verify failed", err)
	}
	if !ok {
		s.metrics.ObserveAuthentication(observability.ResultInvalidCredentials)
		return nil, common.ErrInvalidCredentials
	}

	span.SetAttributes(attribute.String("user.id", user.ID))

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.metrics.ObserveAuthentication(observability.ResultServerFault)
		return nil, s.fault(ctx, span, "authenticate: token issue failed", err)
	}

	s.metrics.ObserveAuthentication(observability.ResultSuccess)
	return &AuthResult{Token: token, User: user.Profile()}, nil
}

// Profile returns the public profile of an authenticated user. A token
// whose account no longer exists yields common.ErrUnauthenticated.
func (s *AccountService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.Profile")
	defer span.End()

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, s.fault(ctx, span, "profile: lookup failed", err)
	}
	return user.Profile(), nil
}

// fault logs err with its full context and returns the opaque server error.
func (s *AccountService) fault(ctx context.Context, span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	logging.LogError(ctx, s.logger, msg, err)
	return common.ErrorInternal
}
