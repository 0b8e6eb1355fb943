package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

var fixedNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func newTestAuthService(repo *stubAccountRepo, tokens *stubTokens, opts ...AuthOption) *AuthService {
	opts = append([]AuthOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewAuthService(repo, testHasher(), tokens, zerolog.Nop(), opts...)
}

func doctorSignup() ports.SignupInput {
	return ports.SignupInput{
		Username:  "jdoe",
		Email:     "j@x.com",
		Password:  "secret1",
		Role:      "doctor",
		FirstName: "J",
		LastName:  "Doe",
	}
}

func TestAuthService_Signup_Success(t *testing.T) {
	repo := newStubAccountRepo()
	tokens := &stubTokens{}
	audit := &recordingAudit{}
	svc := newTestAuthService(repo, tokens, WithAuditRecorder(audit))

	res, err := svc.Signup(context.Background(), doctorSignup())
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if res.Token != "token:acc-1:doctor" {
		t.Fatalf("unexpected token: %q", res.Token)
	}
	a := res.Account
	if a.Role != domain.RoleDoctor || !a.IsActive {
		t.Fatalf("unexpected account: %+v", a)
	}
	if a.PasswordHash == "secret1" {
		t.Fatalf("expected password to be hashed")
	}
	if !testHasher().Verify("secret1", a.PasswordHash) {
		t.Fatalf("stored hash does not match password")
	}
	if !a.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected created at: %v", a.CreatedAt)
	}
	if got := audit.types(); len(got) != 1 || got[0] != domain.EventSignup {
		t.Fatalf("unexpected audit events: %v", got)
	}
}

func TestAuthService_Signup_DefaultsToPatient(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestAuthService(repo, &stubTokens{})

	in := doctorSignup()
	in.Role = ""
	res, err := svc.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if res.Account.Role != domain.RolePatient {
		t.Fatalf("expected patient role, got %s", res.Account.Role)
	}
}

func TestAuthService_Signup_NormalizesIdentity(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestAuthService(repo, &stubTokens{})

	in := doctorSignup()
	in.Username = "  JDoe "
	in.Email = "J@X.com"
	res, err := svc.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if res.Account.Username != "jdoe" || res.Account.Email != "j@x.com" {
		t.Fatalf("identity not normalized: %+v", res.Account)
	}
}

func TestAuthService_Signup_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ports.SignupInput)
		want   string
	}{
		{"unknown role", func(in *ports.SignupInput) { in.Role = "superuser" }, "Invalid role"},
		{"short username", func(in *ports.SignupInput) { in.Username = "jd" }, "Username must be at least 3 characters long"},
		{"username shaped like an email", func(in *ports.SignupInput) { in.Username = "victim@clinic.test" }, "Username cannot contain @"},
		{"bad email", func(in *ports.SignupInput) { in.Email = "not-an-email" }, "Please enter a valid email"},
		{"email with display name", func(in *ports.SignupInput) { in.Email = "J <j@x.com>" }, "Please enter a valid email"},
		{"short password", func(in *ports.SignupInput) { in.Password = "abc" }, "Password must be at least 6 characters long"},
		{"long password", func(in *ports.SignupInput) { in.Password = string(make([]byte, 73)) }, "Password must be at most 72 characters long"},
		{"missing first name", func(in *ports.SignupInput) { in.FirstName = "  " }, "First name is required"},
		{"missing last name", func(in *ports.SignupInput) { in.LastName = "" }, "Last name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubAccountRepo()
			svc := newTestAuthService(repo, &stubTokens{})

			in := doctorSignup()
			tt.mutate(&in)
			_, err := svc.Signup(context.Background(), in)

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Msg != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, verr.Msg)
			}
			if len(repo.accounts) != 0 {
				t.Fatalf("expected no account to be stored")
			}
		})
	}
}

func TestAuthService_Signup_RestrictedRoles(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestAuthService(repo, &stubTokens{}, WithSignupRoles(domain.RolePatient))

	_, err := svc.Signup(context.Background(), doctorSignup())
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Msg != "Invalid role" {
		t.Fatalf("expected Invalid role, got %v", err)
	}
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestAuthService(repo, &stubTokens{})

	if _, err := svc.Signup(context.Background(), doctorSignup()); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}

	sameEmail := doctorSignup()
	sameEmail.Username = "other"
	if _, err := svc.Signup(context.Background(), sameEmail); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists for email, got %v", err)
	}

	sameUsername := doctorSignup()
	sameUsername.Email = "other@x.com"
	if _, err := svc.Signup(context.Background(), sameUsername); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists for username, got %v", err)
	}
	if len(repo.accounts) != 1 {
		t.Fatalf("expected one stored account, got %d", len(repo.accounts))
	}
}

func TestAuthService_Signup_IdentityCannotShadowAnotherAccount(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestAuthService(repo, &stubTokens{})

	victim := doctorSignup()
	victim.Username = "victim"
	victim.Email = "victim@clinic.test"
	if _, err := svc.Signup(context.Background(), victim); err != nil {
		t.Fatalf("victim signup failed: %v", err)
	}

	squatter := doctorSignup()
	squatter.Username = "VICTIM@clinic.test"
	squatter.Email = "squatter@clinic.test"
	if _, err := svc.Signup(context.Background(), squatter); err == nil {
		t.Fatalf("username equal to another account's email must be rejected")
	}

	res, err := svc.Login(context.Background(), "victim@clinic.test", victim.Password)
	if err != nil {
		t.Fatalf("victim login by email failed: %v", err)
	}
	if res.Account.Username != "victim" {
		t.Fatalf("email resolved to the wrong account: %q", res.Account.Username)
	}
}

func TestAuthService_Signup_Misconfigured(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newTestAuthService(repo, &stubTokens{disabled: true})

	if _, err := svc.Signup(context.Background(), doctorSignup()); !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
	if len(repo.accounts) != 0 {
		t.Fatalf("expected no account to be stored")
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubAccountRepo()
	seeded := seedAccount(repo, "carol", domain.RoleAdmin, "s3cret!", true)
	limiter := newStubLimiter()
	audit := &recordingAudit{}
	svc := newTestAuthService(repo, &stubTokens{}, WithLoginLimiter(limiter), WithAuditRecorder(audit))

	for _, identifier := range []string{"carol@clinic.test", "CAROL", " carol "} {
		res, err := svc.Login(context.Background(), identifier, "s3cret!")
		if err != nil {
			t.Fatalf("login with %q failed: %v", identifier, err)
		}
		if res.Token != "token:"+seeded.ID+":admin" {
			t.Fatalf("unexpected token: %q", res.Token)
		}
		if res.Account.LastLogin == nil || !res.Account.LastLogin.Equal(fixedNow) {
			t.Fatalf("expected last login to be set, got %v", res.Account.LastLogin)
		}
	}

	if repo.accounts[seeded.ID].LastLogin == nil {
		t.Fatalf("expected last login to be persisted")
	}
	if len(limiter.resets) != 3 {
		t.Fatalf("expected limiter reset after each success, got %v", limiter.resets)
	}
	for _, typ := range audit.types() {
		if typ != domain.EventLoginSucceeded {
			t.Fatalf("unexpected audit event %s", typ)
		}
	}
}

func TestAuthService_Login_UnknownAndWrongPasswordAreIndistinguishable(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, "dave", domain.RolePatient, "goodpass", true)
	limiter := newStubLimiter()
	svc := newTestAuthService(repo, &stubTokens{}, WithLoginLimiter(limiter))

	_, wrongPass := svc.Login(context.Background(), "dave@clinic.test", "badpass")
	_, unknown := svc.Login(context.Background(), "ghost@clinic.test", "badpass")

	if wrongPass != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", wrongPass)
	}
	if unknown != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", unknown)
	}
	if limiter.failures["dave@clinic.test"] != 1 || limiter.failures["ghost@clinic.test"] != 1 {
		t.Fatalf("expected failures to be recorded, got %v", limiter.failures)
	}
	if repo.accounts["acc-1"].LastLogin != nil {
		t.Fatalf("failed login must not touch last login")
	}
}

func TestAuthService_Login_EmptyInput(t *testing.T) {
	svc := newTestAuthService(newStubAccountRepo(), &stubTokens{})

	if _, err := svc.Login(context.Background(), "", "pass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "dave", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_Deactivated(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, "erin", domain.RoleDoctor, "goodpass", false)
	tokens := &stubTokens{}
	svc := newTestAuthService(repo, tokens)

	if _, err := svc.Login(context.Background(), "erin", "goodpass"); err != domain.ErrAccountDeactivated {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "erin", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if len(tokens.issued) != 0 {
		t.Fatalf("expected no token to be issued")
	}
}

func TestAuthService_Login_Throttled(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, "frank", domain.RolePatient, "goodpass", true)
	limiter := newStubLimiter()
	limiter.deny = true
	audit := &recordingAudit{}
	svc := newTestAuthService(repo, &stubTokens{}, WithLoginLimiter(limiter), WithAuditRecorder(audit))

	if _, err := svc.Login(context.Background(), "frank", "goodpass"); err != domain.ErrTooManyAttempts {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if got := audit.types(); len(got) != 1 || got[0] != domain.EventLoginThrottled {
		t.Fatalf("unexpected audit events: %v", got)
	}
}

func TestAuthService_Login_LimiterFailsOpen(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, "gina", domain.RolePatient, "goodpass", true)
	limiter := newStubLimiter()
	limiter.allowErr = errStoreDown
	svc := newTestAuthService(repo, &stubTokens{}, WithLoginLimiter(limiter))

	if _, err := svc.Login(context.Background(), "gina", "goodpass"); err != nil {
		t.Fatalf("expected login to proceed when limiter is down, got %v", err)
	}
}

func TestAuthService_Login_StoreError(t *testing.T) {
	repo := newStubAccountRepo()
	repo.findErr = errStoreDown
	svc := newTestAuthService(repo, &stubTokens{})

	_, err := svc.Login(context.Background(), "gina", "goodpass")
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("store errors must not look like bad credentials")
	}
}

func TestAuthService_Login_Misconfigured(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, "hank", domain.RolePatient, "goodpass", true)
	svc := newTestAuthService(repo, &stubTokens{disabled: true})

	if _, err := svc.Login(context.Background(), "hank", "goodpass"); !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}
