package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
	"github.com/medicore/clinic-api/internal/pkg/password"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	accounts map[string]*domain.Account
	seq      int
	findErr  error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.LastLogin != nil {
		t := *a.LastLogin
		clone.LastLogin = &t
	}
	return &clone
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	for _, existing := range r.accounts {
		if existing.Username == a.Username || existing.Email == a.Email {
			return nil, domain.ErrAccountExists
		}
	}
	r.seq++
	stored := cloneAccount(a)
	stored.ID = fmt.Sprintf("acc-%d", r.seq)
	r.accounts[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByIdentity(_ context.Context, identifier string) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.accounts {
		if a.Email == identifier || a.Username == identifier {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, a := range r.accounts {
		if a.Username == username || a.Username == email || a.Email == username || a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) UpdateProfile(_ context.Context, id string, u domain.ProfileUpdate) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if u.FirstName != nil {
		a.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		a.LastName = *u.LastName
	}
	if u.PhoneNumber != nil {
		a.PhoneNumber = *u.PhoneNumber
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) UpdatePassword(_ context.Context, id, hash string) error {
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (r *stubAccountRepo) SetActive(_ context.Context, id string, active bool) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.IsActive = active
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.LastLogin = &at
	return nil
}

func (r *stubAccountRepo) List(_ context.Context, f ports.ListAccountsFilter) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range r.accounts {
		if f.Role != "" && a.Role != f.Role {
			continue
		}
		if f.Active != nil && a.IsActive != *f.Active {
			continue
		}
		out = append(out, cloneAccount(a))
	}
	return out, nil
}

type stubTokens struct {
	disabled bool
	issued   []string
}

func (s *stubTokens) Configured() bool { return !s.disabled }

func (s *stubTokens) Issue(accountID string, role domain.Role) (string, error) {
	if s.disabled {
		return "", domain.ErrMisconfigured
	}
	tok := "token:" + accountID + ":" + string(role)
	s.issued = append(s.issued, tok)
	return tok, nil
}

type stubLimiter struct {
	deny     bool
	allowErr error
	failures map[string]int
	resets   []string
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{failures: make(map[string]int)}
}

func (l *stubLimiter) Allow(_ context.Context, id string) (bool, error) {
	if l.allowErr != nil {
		return false, l.allowErr
	}
	return !l.deny, nil
}

func (l *stubLimiter) RecordFailure(_ context.Context, id string) error {
	l.failures[id]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, id string) error {
	l.resets = append(l.resets, id)
	delete(l.failures, id)
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (r *recordingAudit) Record(e domain.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAudit) types() []domain.AuthEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

func testHasher() *password.Hasher {
	return password.NewHasherWithCost(bcrypt.MinCost)
}

// seedAccount stores an account with the given plaintext secret.
func seedAccount(repo *stubAccountRepo, username string, role domain.Role, secret string, active bool) *domain.Account {
	hash, err := testHasher().Hash(secret)
	if err != nil {
		panic(err)
	}
	created, err := repo.Create(context.Background(), &domain.Account{
		Username:     username,
		Email:        username + "@clinic.test",
		PasswordHash: hash,
		Role:         role,
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     active,
	})
	if err != nil {
		panic(err)
	}
	return created
}
