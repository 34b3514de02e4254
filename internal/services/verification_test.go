package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"regexp"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories/sqlite"
)

// captureMailer keeps sent messages and can be told to fail
type captureMailer struct {
	sent []*EmailMessage
	fail error
}

func (m *captureMailer) Provider() string { return "capture" }

func (m *captureMailer) Send(ctx context.Context, msg *EmailMessage) error {
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

type verificationFixture struct {
	repos   *sqlite.RepositoryManager
	service *VerificationService
	mailer  *captureMailer
	user    *models.User
	clock   time.Time
	codes   []string
}

func newVerificationFixture(t *testing.T, config VerificationConfig) *verificationFixture {
	t.Helper()

	f := &verificationFixture{
		repos:  setupRepos(t),
		mailer: &captureMailer{},
		clock:  time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		codes:  []string{"482913", "705118", "330274", "918406"},
	}
	f.user = createUser(t, f.repos, "verify@example.com")

	service, err := NewVerificationService(f.repos.Users(), f.repos.Verifications(), f.repos.EmailAudit(), f.mailer, config, testLogger())
	if err != nil {
		t.Fatalf("NewVerificationService() failed: %v", err)
	}
	service.SetHashCost(bcrypt.MinCost)
	service.now = func() time.Time { return f.clock }
	service.newCode = func() (string, error) {
		code := f.codes[0]
		f.codes = append(f.codes[1:], code)
		return code, nil
	}
	f.service = service
	return f
}

func (f *verificationFixture) send(t *testing.T) *models.VerificationStatus {
	t.Helper()
	status, err := f.service.SendCode(context.Background(), &models.SendVerificationCodeRequest{Email: f.user.Email})
	if err != nil {
		t.Fatalf("SendCode() failed: %v", err)
	}
	return status
}

func (f *verificationFixture) verify(code string) (*models.VerificationStatus, error) {
	return f.service.VerifyEmail(context.Background(), &models.VerifyEmailRequest{Email: f.user.Email, Code: code})
}

func TestVerificationService_SendAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture(t, VerificationConfig{})

	status := f.send(t)
	if !status.CodeSent || status.EmailVerified {
		t.Errorf("Unexpected status: %+v", status)
	}
	if status.ExpiresAt == nil || !status.ExpiresAt.Equal(f.clock.Add(15*time.Minute)) {
		t.Errorf("Expected expiry 15 minutes out, got %v", status.ExpiresAt)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("Expected one email, got %d", len(f.mailer.sent))
	}
	msg := f.mailer.sent[0]
	if msg.To != "verify@example.com" || !strings.Contains(msg.Text, "482913") || !strings.Contains(msg.HTML, "482913") {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if !strings.Contains(msg.HTML, "Hello Test") {
		t.Errorf("Expected greeting in HTML body, got %s", msg.HTML)
	}

	stored, err := f.repos.Verifications().GetLatestOpen(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("GetLatestOpen() failed: %v", err)
	}
	if stored.CodeHash == "482913" || bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte("482913")) != nil {
		t.Error("Code should be stored as a bcrypt hash")
	}

	audit, err := f.repos.EmailAudit().ListByRecipient(ctx, f.user.Email, 10)
	if err != nil || len(audit) != 1 {
		t.Fatalf("Expected one audit entry, got %d, %v", len(audit), err)
	}
	if audit[0].Status != models.EmailStatusSent || audit[0].Provider != "capture" || audit[0].UserID != f.user.ID {
		t.Errorf("Unexpected audit entry: %+v", audit[0])
	}

	if _, err := f.verify("111111"); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Errorf("Expected invalid code, got %v", err)
	}

	verified, err := f.verify("482913")
	if err != nil {
		t.Fatalf("VerifyEmail() failed: %v", err)
	}
	if !verified.EmailVerified {
		t.Errorf("Expected verified status, got %+v", verified)
	}

	user, err := f.repos.Users().GetByID(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if !user.EmailVerified || user.EmailVerifiedAt == nil || !user.EmailVerifiedAt.Equal(f.clock) {
		t.Errorf("User not marked verified: %+v", user)
	}

	// Verified accounts answer without a code check and get no new email
	if _, err := f.verify("000000"); err != nil {
		t.Errorf("Repeat verification should succeed, got %v", err)
	}
	again := f.send(t)
	if !again.EmailVerified || again.CodeSent {
		t.Errorf("Expected verified status without a send, got %+v", again)
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("No email should go to a verified address, got %d", len(f.mailer.sent))
	}
}

func TestVerificationService_ExpiredCode(t *testing.T) {
	f := newVerificationFixture(t, VerificationConfig{CodeTTL: 10 * time.Minute})
	f.send(t)

	f.clock = f.clock.Add(10 * time.Minute)
	if _, err := f.verify("482913"); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Errorf("Expected expired code to be rejected, got %v", err)
	}
}

func TestVerificationService_AttemptLimit(t *testing.T) {
	f := newVerificationFixture(t, VerificationConfig{MaxAttempts: 3})
	f.send(t)

	for i := 0; i < 3; i++ {
		if _, err := f.verify("999999"); !errors.Is(err, ErrInvalidVerificationCode) {
			t.Fatalf("Attempt %d: expected invalid code, got %v", i+1, err)
		}
	}

	if _, err := f.verify("482913"); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Errorf("Correct code after exhausting attempts should fail, got %v", err)
	}

	// A fresh code resets the counter
	f.send(t)
	if _, err := f.verify("705118"); err != nil {
		t.Errorf("Fresh code should verify, got %v", err)
	}
}

func TestVerificationService_NewCodeRetiresPrevious(t *testing.T) {
	f := newVerificationFixture(t, VerificationConfig{})
	f.send(t)
	f.clock = f.clock.Add(time.Minute)
	f.send(t)

	if _, err := f.verify("482913"); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Errorf("Older code should be retired, got %v", err)
	}
	if _, err := f.verify("705118"); err != nil {
		t.Errorf("Newest code should verify, got %v", err)
	}
}

func TestVerificationService_Throttle(t *testing.T) {
	f := newVerificationFixture(t, VerificationConfig{MaxSendsPerHour: 2})
	f.send(t)
	f.send(t)

	req := &models.SendVerificationCodeRequest{Email: f.user.Email}
	if _, err := f.service.SendCode(context.Background(), req); !errors.Is(err, ErrVerificationThrottled) {
		t.Fatalf("Expected throttling, got %v", err)
	}
	if len(f.mailer.sent) != 2 {
		t.Errorf("Expected two emails, got %d", len(f.mailer.sent))
	}

	f.clock = f.clock.Add(61 * time.Minute)
	f.send(t)
}

func TestVerificationService_DeliveryFailure(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture(t, VerificationConfig{})
	f.mailer.fail = errors.New("535 authentication failed")

	_, err := f.service.SendCode(ctx, &models.SendVerificationCodeRequest{Email: f.user.Email})
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("Expected delivery error, got %v", err)
	}

	audit, err := f.repos.EmailAudit().ListByRecipient(ctx, f.user.Email, 10)
	if err != nil || len(audit) != 1 {
		t.Fatalf("Expected one audit entry, got %d, %v", len(audit), err)
	}
	if audit[0].Status != models.EmailStatusFailed || audit[0].ErrorMessage == nil ||
		!strings.Contains(*audit[0].ErrorMessage, "535") {
		t.Errorf("Failure not recorded: %+v", audit[0])
	}
}

func TestVerificationService_UnknownAddressAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture(t, VerificationConfig{})

	status, err := f.service.SendCode(ctx, &models.SendVerificationCodeRequest{Email: "Ghost@Example.com"})
	if err != nil {
		t.Fatalf("SendCode() failed: %v", err)
	}
	if !status.CodeSent || status.Email != "ghost@example.com" {
		t.Errorf("Expected generic answer, got %+v", status)
	}
	if len(f.mailer.sent) != 0 {
		t.Errorf("No email should be sent, got %d", len(f.mailer.sent))
	}
	count, err := f.repos.EmailAudit().CountSince(ctx, "ghost@example.com", models.EmailPurposeVerification, f.clock.Add(-time.Hour))
	if err != nil || count != 0 {
		t.Errorf("No audit entry expected, got %d, %v", count, err)
	}

	_, err = f.service.VerifyEmail(ctx, &models.VerifyEmailRequest{Email: "ghost@example.com", Code: "123456"})
	if !errors.Is(err, ErrInvalidVerificationCode) {
		t.Errorf("Expected invalid code for unknown address, got %v", err)
	}

	if _, err := f.service.SendCode(ctx, nil); !models.IsInvalidInput(err) {
		t.Errorf("Expected invalid input for nil request, got %v", err)
	}
	if _, err := f.service.SendCode(ctx, &models.SendVerificationCodeRequest{Email: "nope"}); err == nil {
		t.Error("Expected validation error for malformed email")
	}
	if _, err := f.verify("12345"); err == nil {
		t.Error("Expected validation error for a five digit code")
	}
}

func TestGenerateVerificationCode(t *testing.T) {
	digits := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := generateVerificationCode()
		if err != nil {
			t.Fatalf("generateVerificationCode() failed: %v", err)
		}
		if !digits.MatchString(code) {
			t.Fatalf("Expected six digits, got %q", code)
		}
	}
}

func TestNewVerificationService_Validation(t *testing.T) {
	repos := setupRepos(t)
	if _, err := NewVerificationService(nil, repos.Verifications(), repos.EmailAudit(), &captureMailer{}, VerificationConfig{}, nil); err == nil {
		t.Error("Expected error for missing user repository")
	}
	if _, err := NewVerificationService(repos.Users(), repos.Verifications(), repos.EmailAudit(), nil, VerificationConfig{}, nil); err == nil {
		t.Error("Expected error for missing mailer")
	}

	service, err := NewVerificationService(repos.Users(), repos.Verifications(), repos.EmailAudit(), &captureMailer{}, VerificationConfig{}, nil)
	if err != nil {
		t.Fatalf("NewVerificationService() failed: %v", err)
	}
	if service.config != DefaultVerificationConfig() {
		t.Errorf("Expected defaults, got %+v", service.config)
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	mailer, err := NewSMTPMailer(&MailerConfig{
		FromEmail:    "no-reply@taxlator.ng",
		FromName:     "Taxlator",
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "user",
		SMTPPassword: "secret",
	})
	if err != nil {
		t.Fatalf("NewSMTPMailer() failed: %v", err)
	}

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	mailer.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err = mailer.Send(context.Background(), &EmailMessage{
		To:      "ada@example.com",
		Subject: "Your code",
		HTML:    "<p>123456</p>",
	})
	if err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	if gotAddr != "smtp.example.com:587" || gotAuth == nil || gotFrom != "no-reply@taxlator.ng" {
		t.Errorf("Unexpected envelope: %s %v %s", gotAddr, gotAuth, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ada@example.com" {
		t.Errorf("Unexpected recipients: %v", gotTo)
	}
	for _, want := range []string{
		"From: Taxlator <no-reply@taxlator.ng>\r\n",
		"To: ada@example.com\r\n",
		"Subject: Your code\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>123456</p>",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("Message missing %q:\n%s", want, gotMsg)
		}
	}

	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("421 service not available")
	}
	if err := mailer.Send(context.Background(), &EmailMessage{To: "ada@example.com"}); err == nil {
		t.Error("Expected send failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mailer.Send(ctx, &EmailMessage{To: "ada@example.com"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected canceled context, got %v", err)
	}
}

func TestResendMailer_Send(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Header.Get("Authorization") != "Bearer re_test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"statusCode":401,"name":"unauthorized","message":"bad key"}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer server.Close()

	mailer, err := NewResendMailer(&MailerConfig{
		FromEmail:     "no-reply@taxlator.ng",
		FromName:      "Taxlator",
		ResendAPIKey:  "re_test",
		ResendBaseURL: server.URL,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewResendMailer() failed: %v", err)
	}

	err = mailer.Send(context.Background(), &EmailMessage{
		To:      "ada@example.com",
		Subject: "Your code",
		HTML:    "<p>123456</p>",
		Text:    "123456",
		Tags:    map[string]string{"purpose": "email_verification"},
	})
	if err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	if payload["from"] != "Taxlator <no-reply@taxlator.ng>" || payload["subject"] != "Your code" {
		t.Errorf("Unexpected payload: %v", payload)
	}

	bad, err := NewResendMailer(&MailerConfig{
		FromEmail:     "no-reply@taxlator.ng",
		ResendAPIKey:  "wrong",
		ResendBaseURL: server.URL,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewResendMailer() failed: %v", err)
	}
	if err := bad.Send(context.Background(), &EmailMessage{To: "ada@example.com"}); err == nil {
		t.Error("Expected rejected key to fail")
	}
}

func TestNewMailer(t *testing.T) {
	tests := []struct {
		name     string
		config   *MailerConfig
		provider string
		wantErr  bool
	}{
		{name: "nil config logs", config: nil, provider: MailProviderLog},
		{name: "empty provider logs", config: &MailerConfig{}, provider: MailProviderLog},
		{name: "smtp", config: &MailerConfig{Provider: "SMTP", SMTPHost: "localhost", SMTPPort: 25, FromEmail: "a@b.co"}, provider: MailProviderSMTP},
		{name: "smtp without host", config: &MailerConfig{Provider: "smtp", SMTPPort: 25, FromEmail: "a@b.co"}, wantErr: true},
		{name: "resend", config: &MailerConfig{Provider: "resend", ResendAPIKey: "re_x", FromEmail: "a@b.co"}, provider: MailProviderResend},
		{name: "resend without key", config: &MailerConfig{Provider: "resend", FromEmail: "a@b.co"}, wantErr: true},
		{name: "unknown", config: &MailerConfig{Provider: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer, err := NewMailer(tt.config, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMailer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && mailer.Provider() != tt.provider {
				t.Errorf("Expected provider %s, got %s", tt.provider, mailer.Provider())
			}
		})
	}

	if err := NewLogMailer(nil).Send(context.Background(), &EmailMessage{To: "a@b.co", Text: "hi"}); err != nil {
		t.Errorf("LogMailer.Send() failed: %v", err)
	}
}
