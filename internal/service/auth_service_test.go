package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

type mockUserRepo struct {
	nextID       int64
	usersByID    map[int64]domain.User
	usersByEmail map[string]int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		nextID:       1,
		usersByID:    make(map[int64]domain.User),
		usersByEmail: make(map[string]int64),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	if _, taken := m.usersByEmail[user.Email]; taken {
		return domain.User{}, repository.ErrDuplicateEmail
	}
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now().UTC()
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return user, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) SetResetCode(_ context.Context, id int64, code string, expiresAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.ResetCode = code
	user.ResetCodeExpires = &expiresAt
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) ClearResetCode(_ context.Context, id int64) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.ResetCode = ""
	user.ResetCodeExpires = nil
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id int64, fields repository.ProfileUpdate) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	if fields.Email != nil {
		if otherID, taken := m.usersByEmail[*fields.Email]; taken && otherID != id {
			return domain.User{}, repository.ErrDuplicateEmail
		}
		delete(m.usersByEmail, user.Email)
		user.Email = *fields.Email
		m.usersByEmail[user.Email] = id
	}
	if fields.Name != nil {
		user.Name = *fields.Name
	}
	if fields.Surname != nil {
		user.Surname = *fields.Surname
	}
	m.usersByID[id] = user
	return user, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) (bool, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return false, nil
	}
	delete(m.usersByID, id)
	delete(m.usersByEmail, user.Email)
	return true, nil
}

func (m *mockUserRepo) ListAll(_ context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(m.usersByID))
	for _, u := range m.usersByID {
		users = append(users, u)
	}
	return users, nil
}

type mockProjectRepo struct {
	summaries []domain.ProjectSummary
}

func (m *mockProjectRepo) Create(_ context.Context, p domain.Project) (domain.Project, error) {
	return p, nil
}
func (m *mockProjectRepo) GetByID(_ context.Context, _ int64) (domain.Project, error) {
	return domain.Project{}, pgx.ErrNoRows
}
func (m *mockProjectRepo) List(_ context.Context) ([]domain.Project, error) { return nil, nil }
func (m *mockProjectRepo) Update(_ context.Context, p domain.Project) (domain.Project, error) {
	return p, nil
}
func (m *mockProjectRepo) Delete(_ context.Context, _ int64) (bool, error) { return false, nil }
func (m *mockProjectRepo) ListSummariesByAdmin(_ context.Context, _ int64) ([]domain.ProjectSummary, error) {
	return m.summaries, nil
}

type mockTaskRepo struct {
	summaries []domain.TaskSummary
}

func (m *mockTaskRepo) Create(_ context.Context, t domain.Task) (domain.Task, error) { return t, nil }
func (m *mockTaskRepo) GetByID(_ context.Context, _ int64) (domain.Task, error) {
	return domain.Task{}, pgx.ErrNoRows
}
func (m *mockTaskRepo) Update(_ context.Context, t domain.Task) (domain.Task, error) { return t, nil }
func (m *mockTaskRepo) ListSummariesByUser(_ context.Context, _ int64) ([]domain.TaskSummary, error) {
	return m.summaries, nil
}

type mockEmailSender struct {
	lastTo      string
	lastCode    string
	lastExpires time.Time
	err         error
}

func (m *mockEmailSender) SendPasswordResetCode(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	m.lastTo = toEmail
	m.lastCode = code
	m.lastExpires = expiresAt
	return m.err
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string) bool { return true }

func newTestAuthService(repo *mockUserRepo, sender *mockEmailSender) *AuthService {
	return NewAuthService(zap.NewNop(), repo, &mockProjectRepo{}, &mockTaskRepo{}, sender, allowAllLimiter{})
}

func TestRegisterAndAuthenticateRoundTrip(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockEmailSender{})

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ana",
		Surname:  "Lopez",
		Email:    "ana@example.com",
		Password: "Abcdef1",
	})
	if err != nil {
		t.Fatalf("expected register success, got %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if user.PasswordHash == "Abcdef1" {
		t.Fatalf("expected password to be hashed")
	}

	got, err := svc.Authenticate(context.Background(), "ana@example.com", "Abcdef1")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, got.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockEmailSender{})

	input := RegisterInput{Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := svc.Register(context.Background(), input)
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterPasswordPolicy(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockEmailSender{})

	cases := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"too short", "Ab1", ErrWeakPassword},
		{"too long", "Abcdefghijklmnopqrstu", ErrWeakPassword},
		{"digits only", "1234567", ErrWeakPassword},
		{"symbols only", "!!!!!!", ErrWeakPassword},
		{"valid with letter", "abc123", nil},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), RegisterInput{
			Name:     "Ana",
			Surname:  "Lopez",
			Email:    strings.ReplaceAll(tc.name, " ", "-") + "@example.com",
			Password: tc.password,
		})
		if tc.wantErr == nil && err != nil {
			t.Fatalf("%s: expected success, got %v", tc.name, err)
		}
		if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestAuthenticateUniformError(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockEmailSender{})

	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, errWrongPassword := svc.Authenticate(context.Background(), "ana@example.com", "wrongpass")
	_, errUnknownEmail := svc.Authenticate(context.Background(), "nobody@example.com", "whatever")

	if !errors.Is(errWrongPassword, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrongPassword)
	}
	if !errors.Is(errUnknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", errUnknownEmail)
	}
	if errWrongPassword.Error() != errUnknownEmail.Error() {
		t.Fatalf("expected identical error for both cases")
	}
}

func TestForgotPasswordIssuesCode(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	svc := newTestAuthService(repo, sender)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	start := time.Now().UTC()
	if err := svc.ForgotPassword(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("expected forgot password success, got %v", err)
	}
	if sender.lastTo != "ana@example.com" {
		t.Fatalf("expected code sent to ana@example.com, got %q", sender.lastTo)
	}
	if len(sender.lastCode) != 6 {
		t.Fatalf("expected 6-digit code, got %q", sender.lastCode)
	}
	if sender.lastExpires.Before(start.Add(4*time.Minute)) || sender.lastExpires.After(start.Add(6*time.Minute)) {
		t.Fatalf("expected expiry around 5 minutes, got %v", sender.lastExpires)
	}

	stored, err := repo.GetByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("expected user stored, got %v", err)
	}
	if stored.ResetCode != sender.lastCode || stored.ResetCodeExpires == nil {
		t.Fatalf("expected code and expiry stored together")
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	svc := newTestAuthService(repo, sender)

	if err := svc.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected silent success for unknown email, got %v", err)
	}
	if sender.lastTo != "" {
		t.Fatalf("expected no email dispatched")
	}
}

func TestResetCodeLifecycle(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	svc := newTestAuthService(repo, sender)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "ana@example.com"); err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}

	if err := svc.VerifyResetCode(ctx, "ana@example.com", "000000"); !errors.Is(err, ErrResetCodeInvalid) {
		t.Fatalf("expected ErrResetCodeInvalid for wrong code, got %v", err)
	}
	if err := svc.VerifyResetCode(ctx, "ana@example.com", sender.lastCode); err != nil {
		t.Fatalf("expected verify success, got %v", err)
	}
	// Verify no consume el codigo: set lo revalida por su cuenta.
	if err := svc.VerifyResetCode(ctx, "ana@example.com", sender.lastCode); err != nil {
		t.Fatalf("expected idempotent re-verify, got %v", err)
	}

	if err := svc.SetNewPassword(ctx, "ana@example.com", sender.lastCode, "Newpass1"); err != nil {
		t.Fatalf("expected set new password success, got %v", err)
	}

	stored, _ := repo.GetByEmail(ctx, "ana@example.com")
	if stored.ResetCode != "" || stored.ResetCodeExpires != nil {
		t.Fatalf("expected reset code cleared after use")
	}

	// El codigo es de un solo uso.
	if err := svc.SetNewPassword(ctx, "ana@example.com", sender.lastCode, "Other123"); !errors.Is(err, ErrResetCodeInvalid) {
		t.Fatalf("expected ErrResetCodeInvalid on reuse, got %v", err)
	}

	if _, err := svc.Authenticate(ctx, "ana@example.com", "Abcdef1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password invalidated, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ana@example.com", "Newpass1"); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}
}

func TestResetCodeExpired(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	svc := newTestAuthService(repo, sender)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "ana@example.com"); err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}

	user, _ := repo.GetByEmail(ctx, "ana@example.com")
	expired := time.Now().UTC().Add(-time.Minute)
	if err := repo.SetResetCode(ctx, user.ID, sender.lastCode, expired); err != nil {
		t.Fatalf("set reset code failed: %v", err)
	}

	if err := svc.VerifyResetCode(ctx, "ana@example.com", sender.lastCode); !errors.Is(err, ErrResetCodeInvalid) {
		t.Fatalf("expected ErrResetCodeInvalid for expired code, got %v", err)
	}
	if err := svc.SetNewPassword(ctx, "ana@example.com", sender.lastCode, "Newpass1"); !errors.Is(err, ErrResetCodeInvalid) {
		t.Fatalf("expected ErrResetCodeInvalid for expired code, got %v", err)
	}
}

func TestForgotPasswordRateLimited(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	svc := NewAuthService(zap.NewNop(), repo, &mockProjectRepo{}, &mockTaskRepo{}, sender, NewResetRateLimiter(time.Minute, 1))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ForgotPassword(ctx, "ana@example.com"); err != nil {
		t.Fatalf("first request should pass, got %v", err)
	}
	if err := svc.ForgotPassword(ctx, "ana@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockEmailSender{})
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrongpass", "Newpass1"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "Abcdef1", "Newpass1"); err != nil {
		t.Fatalf("expected change password success, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ana@example.com", "Abcdef1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password invalidated, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ana@example.com", "Newpass1"); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}
}

func TestUpdateProfileDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockEmailSender{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	other, err := svc.Register(ctx, RegisterInput{
		Name: "Beto", Surname: "Diaz", Email: "beto@example.com", Password: "Abcdef1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	taken := "ana@example.com"
	_, err = svc.UpdateProfile(ctx, other.ID, repository.ProfileUpdate{Email: &taken})
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	_, err = svc.UpdateProfile(ctx, other.ID, repository.ProfileUpdate{})
	if !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockEmailSender{})
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("expected delete success, got %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestGetProfileAggregatesSummaries(t *testing.T) {
	repo := newMockUserRepo()
	projects := &mockProjectRepo{summaries: []domain.ProjectSummary{{ID: 1, Name: "Alpha"}}}
	tasks := &mockTaskRepo{summaries: []domain.TaskSummary{{ID: 7, Name: "Deploy", Status: "open"}}}
	svc := NewAuthService(zap.NewNop(), repo, projects, tasks, &mockEmailSender{}, allowAllLimiter{})
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Name: "Ana", Surname: "Lopez", Email: "ana@example.com", Password: "Abcdef1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	profile, err := svc.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("expected profile, got %v", err)
	}
	if len(profile.Projects) != 1 || profile.Projects[0].Name != "Alpha" {
		t.Fatalf("expected project summaries in profile")
	}
	if len(profile.AssignedTasks) != 1 || profile.AssignedTasks[0].Name != "Deploy" {
		t.Fatalf("expected task summaries in profile")
	}
}
