package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html/template"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

var (
	// ErrInvalidVerificationCode is returned for wrong, expired, used or
	// exhausted codes and for unknown addresses
	ErrInvalidVerificationCode = errors.New("verification code is invalid or expired")

	// ErrVerificationThrottled is returned when too many codes were sent recently
	ErrVerificationThrottled = errors.New("too many verification emails requested, try again later")

	// ErrEmailDelivery is returned when the mail provider rejects a message
	ErrEmailDelivery = errors.New("verification email could not be delivered")
)

const verificationCodeDigits = 6

// VerificationConfig tunes code lifetime and abuse limits
type VerificationConfig struct {
	CodeTTL         time.Duration
	MaxAttempts     int
	MaxSendsPerHour int
}

// DefaultVerificationConfig returns a 15 minute code with five tries and
// at most five emails per address per hour
func DefaultVerificationConfig() VerificationConfig {
	return VerificationConfig{
		CodeTTL:         15 * time.Minute,
		MaxAttempts:     5,
		MaxSendsPerHour: 5,
	}
}

var verificationEmailHTML = template.Must(template.New("verification_email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <p>Hello {{.Name}},</p>
  <p>Use this code to verify your Taxlator email address:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>The code expires in {{.Minutes}} minutes. If you did not create an account, ignore this email.</p>
</body>
</html>`))

// VerificationService issues and redeems email verification codes. Codes are
// stored as bcrypt hashes and every email is written to the audit log.
type VerificationService struct {
	users    repositories.UserRepository
	codes    repositories.VerificationRepository
	audit    repositories.EmailAuditRepository
	mailer   Mailer
	config   VerificationConfig
	validate *validator.Validate
	cost     int
	logger   *logrus.Logger

	now     func() time.Time
	newCode func() (string, error)
}

// NewVerificationService creates a verification service
func NewVerificationService(
	users repositories.UserRepository,
	codes repositories.VerificationRepository,
	audit repositories.EmailAuditRepository,
	mailer Mailer,
	config VerificationConfig,
	logger *logrus.Logger,
) (*VerificationService, error) {
	if users == nil || codes == nil || audit == nil {
		return nil, fmt.Errorf("user, verification and email audit repositories are required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer cannot be nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	defaults := DefaultVerificationConfig()
	if config.CodeTTL <= 0 {
		config.CodeTTL = defaults.CodeTTL
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.MaxSendsPerHour <= 0 {
		config.MaxSendsPerHour = defaults.MaxSendsPerHour
	}

	validate := validator.New()
	validate.SetTagName("binding")

	return &VerificationService{
		users:    users,
		codes:    codes,
		audit:    audit,
		mailer:   mailer,
		config:   config,
		validate: validate,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  generateVerificationCode,
	}, nil
}

// SetHashCost overrides the bcrypt cost used for codes
func (s *VerificationService) SetHashCost(cost int) {
	s.cost = cost
}

// SendCode emails a fresh code and retires the previous ones. Unknown
// addresses get the same answer as registered ones.
func (s *VerificationService) SendCode(ctx context.Context, req *models.SendVerificationCodeRequest) (*models.VerificationStatus, error) {
	if req == nil {
		return nil, models.NewInvalidInputError("body", nil, "is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	now := s.now()
	expiresAt := now.Add(s.config.CodeTTL)
	accepted := &models.VerificationStatus{Email: email, CodeSent: true, ExpiresAt: &expiresAt}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			s.logger.Info("Verification code requested for an unknown address")
			return accepted, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.EmailVerified {
		return &models.VerificationStatus{Email: email, EmailVerified: true}, nil
	}

	sent, err := s.audit.CountSince(ctx, email, models.EmailPurposeVerification, now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent emails: %w", err)
	}
	if sent >= int64(s.config.MaxSendsPerHour) {
		s.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"sent":    sent,
		}).Warn("Verification emails throttled")
		return nil, ErrVerificationThrottled
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	if _, err := s.codes.ConsumeAllForUser(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to retire previous codes: %w", err)
	}
	if err := s.codes.Create(ctx, models.NewEmailVerification(user.ID, string(hash), now, s.config.CodeTTL)); err != nil {
		return nil, fmt.Errorf("failed to store code: %w", err)
	}

	audit := models.NewEmailAudit(user.ID, email, models.EmailPurposeVerification, s.mailer.Provider(), now)
	if err := s.audit.Create(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to create email audit record: %w", err)
	}

	msg, err := s.verificationEmail(user, code)
	if err != nil {
		s.updateEmailStatus(ctx, audit.ID, models.EmailStatusFailed, fmt.Sprintf("Template rendering failed: %v", err))
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.updateEmailStatus(ctx, audit.ID, models.EmailStatusFailed, err.Error())
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  user.ID,
			"provider": s.mailer.Provider(),
		}).Error("Verification email failed")
		return nil, fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	s.updateEmailStatus(ctx, audit.ID, models.EmailStatusSent, "")
	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"provider": s.mailer.Provider(),
	}).Info("Verification code sent")

	return accepted, nil
}

// VerifyEmail redeems a code and marks the address as verified. Verifying
// an already verified address succeeds without a code check.
func (s *VerificationService) VerifyEmail(ctx context.Context, req *models.VerifyEmailRequest) (*models.VerificationStatus, error) {
	if req == nil {
		return nil, models.NewInvalidInputError("body", nil, "is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	verified := &models.VerificationStatus{Email: email, EmailVerified: true}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidVerificationCode
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.EmailVerified {
		return verified, nil
	}

	code, err := s.codes.GetLatestOpen(ctx, user.ID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidVerificationCode
		}
		return nil, fmt.Errorf("failed to load code: %w", err)
	}

	now := s.now()
	if code.Expired(now) || code.Attempts >= s.config.MaxAttempts {
		return nil, ErrInvalidVerificationCode
	}

	if err := bcrypt.CompareHashAndPassword([]byte(code.CodeHash), []byte(req.Code)); err != nil {
		attempts, incErr := s.codes.IncrementAttempts(ctx, code.ID)
		if incErr != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", incErr)
		}
		s.logger.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"attempts": attempts,
		}).Warn("Wrong verification code")
		return nil, ErrInvalidVerificationCode
	}

	if err := s.codes.Consume(ctx, code.ID, now); err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidVerificationCode
		}
		return nil, fmt.Errorf("failed to consume code: %w", err)
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
	}).Info("Email verified")

	return verified, nil
}

func (s *VerificationService) verificationEmail(user *models.User, code string) (*EmailMessage, error) {
	minutes := int(s.config.CodeTTL / time.Minute)

	var html bytes.Buffer
	data := map[string]interface{}{
		"Name":    user.FirstName,
		"Code":    code,
		"Minutes": minutes,
	}
	if err := verificationEmailHTML.Execute(&html, data); err != nil {
		return nil, err
	}

	return &EmailMessage{
		To:      user.Email,
		Subject: "Your Taxlator verification code",
		HTML:    html.String(),
		Text:    fmt.Sprintf("Your Taxlator verification code is %s. It expires in %d minutes.", code, minutes),
		Tags:    map[string]string{"purpose": string(models.EmailPurposeVerification)},
	}, nil
}

// updateEmailStatus records a delivery outcome. Failures are logged only;
// the email itself has already been handled.
func (s *VerificationService) updateEmailStatus(ctx context.Context, id string, status models.EmailStatus, errorMessage string) {
	var msg *string
	if errorMessage != "" {
		msg = &errorMessage
	}
	if err := s.audit.UpdateStatus(ctx, id, status, msg); err != nil {
		s.logger.WithError(err).WithField("email_id", id).Warn("Failed to update email audit record")
	}
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", verificationCodeDigits, n.Int64()), nil
}
