package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailStatus tracks the delivery of one outgoing email
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// EmailPurpose names why an email was sent. Throttling counts per purpose.
type EmailPurpose string

const EmailPurposeVerification EmailPurpose = "email_verification"

// EmailVerification is one issued verification code. Only the bcrypt hash
// of the code is kept.
type EmailVerification struct {
	ID         string
	UserID     string
	CodeHash   string
	Attempts   int
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// NewEmailVerification creates an unconsumed code record valid for ttl
func NewEmailVerification(userID, codeHash string, now time.Time, ttl time.Duration) *EmailVerification {
	return &EmailVerification{
		ID:        uuid.New().String(),
		UserID:    userID,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// Validate validates the verification record
func (v *EmailVerification) Validate() error {
	if err := ValidateRequired(v.ID, "id"); err != nil {
		return err
	}
	if err := ValidateRequired(v.UserID, "userId"); err != nil {
		return err
	}
	if err := ValidateRequired(v.CodeHash, "codeHash"); err != nil {
		return err
	}
	if !v.ExpiresAt.After(v.CreatedAt) {
		return NewInvalidInputError("expiresAt", v.ExpiresAt, "must be after createdAt")
	}
	return nil
}

// Expired reports whether the code can no longer be redeemed at now
func (v *EmailVerification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// EmailAudit records one outgoing email and its delivery outcome
type EmailAudit struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId,omitempty"`
	RecipientEmail string       `json:"recipientEmail"`
	Purpose        EmailPurpose `json:"purpose"`
	Provider       string       `json:"provider"`
	Status         EmailStatus  `json:"status"`
	ErrorMessage   *string      `json:"errorMessage,omitempty"`
	SentAt         time.Time    `json:"sentAt"`
}

// NewEmailAudit creates a pending audit entry
func NewEmailAudit(userID, recipient string, purpose EmailPurpose, provider string, now time.Time) *EmailAudit {
	return &EmailAudit{
		ID:             uuid.New().String(),
		UserID:         userID,
		RecipientEmail: NormalizeEmail(recipient),
		Purpose:        purpose,
		Provider:       provider,
		Status:         EmailStatusPending,
		SentAt:         now,
	}
}

// Validate validates the audit entry
func (a *EmailAudit) Validate() error {
	if err := ValidateRequired(a.ID, "id"); err != nil {
		return err
	}
	if err := ValidateEmail(a.RecipientEmail, "recipientEmail"); err != nil {
		return err
	}
	if err := ValidateRequired(string(a.Purpose), "purpose"); err != nil {
		return err
	}
	if err := ValidateRequired(a.Provider, "provider"); err != nil {
		return err
	}
	return ValidateEnum(string(a.Status), []string{
		string(EmailStatusPending),
		string(EmailStatusSent),
		string(EmailStatusFailed),
	}, "status")
}

// SendVerificationCodeRequest is the payload of POST /api/auth/sendVerificationCode
type SendVerificationCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyEmailRequest is the payload of POST /api/auth/verifyEmail
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// VerificationStatus is returned by both verification endpoints
type VerificationStatus struct {
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	CodeSent      bool       `json:"codeSent"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}
