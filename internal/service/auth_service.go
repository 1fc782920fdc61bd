package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/domain"
	"taskboard/internal/email"
	"taskboard/internal/repository"
)

// AuthService coordina registro, login y el ciclo de vida de credenciales.
type AuthService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	projects     repository.ProjectRepository
	tasks        repository.TaskRepository
	emailSender  email.Sender
	resetLimiter ResetRateLimiter
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	emailSender email.Sender,
	resetLimiter ResetRateLimiter,
) *AuthService {
	if resetLimiter == nil {
		resetLimiter = NewResetRateLimiter(resetRateWindow, 3)
	}
	return &AuthService{
		logger:       logger,
		users:        users,
		projects:     projects,
		tasks:        tasks,
		emailSender:  emailSender,
		resetLimiter: resetLimiter,
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be 6-20 characters and contain at least one letter")
	ErrMissingFields      = errors.New("required fields missing")
	ErrNoFields           = errors.New("no valid fields provided for update")
	ErrUserNotFound       = errors.New("user not found")
	ErrResetCodeInvalid   = errors.New("invalid or expired code")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrRateLimited        = errors.New("rate limited")
)

const (
	resetCodeTTL    = 5 * time.Minute
	resetRateWindow = 15 * time.Minute
	bcryptCost      = 12
	emailTimeout    = 10 * time.Second
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterInput struct {
	Name     string
	Surname  string
	Email    string
	Password string
	IsAdmin  bool
}

// Register valida, hashea y crea el usuario. Nunca devuelve el hash al
// cliente: el campo va con json:"-" en el dominio.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	surname := strings.TrimSpace(input.Surname)
	emailAddr := strings.TrimSpace(input.Email)

	if name == "" || surname == "" {
		return domain.User{}, ErrMissingFields
	}
	if !emailPattern.MatchString(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	if !isValidPassword(input.Password) {
		return domain.User{}, ErrWeakPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		Name:         name,
		Surname:      surname,
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
		IsAdmin:      input.IsAdmin,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", created.ID))
	return created, nil
}

// Authenticate devuelve el mismo error para email desconocido y password
// incorrecto, para no permitir enumerar cuentas.
func (s *AuthService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ForgotPassword emite un codigo de 6 digitos con vigencia de 5 minutos.
// Para emails desconocidos devuelve nil igual: la respuesta HTTP es generica
// exista o no la cuenta, y un fallo de envio tampoco debe delatarla.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = strings.TrimSpace(emailAddr)
	if !emailPattern.MatchString(emailAddr) {
		return ErrInvalidEmail
	}
	if s.resetLimiter != nil && !s.resetLimiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	code, err := GenerateResetCode()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(resetCodeTTL)
	if err := s.users.SetResetCode(ctx, user.ID, code, expiresAt); err != nil {
		return err
	}

	if s.emailSender == nil {
		s.logger.Warn("reset code issued without email sender", zap.Int64("user_id", user.ID))
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()
	if err := s.emailSender.SendPasswordResetCode(sendCtx, emailAddr, code, expiresAt); err != nil {
		s.logger.Warn("send reset code failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}
	return nil
}

// VerifyResetCode chequea match y vigencia. No persiste estado "verificado":
// SetNewPassword repite los mismos chequeos, asi que reintentos concurrentes
// no pueden saltarse un codigo valido.
func (s *AuthService) VerifyResetCode(ctx context.Context, emailAddr, code string) error {
	_, err := s.lookupByResetCode(ctx, emailAddr, code)
	return err
}

// SetNewPassword revalida el codigo, aplica la politica de passwords y
// reemplaza el hash limpiando ambas columnas de reset (uso unico).
func (s *AuthService) SetNewPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	user, err := s.lookupByResetCode(ctx, emailAddr, code)
	if err != nil {
		return err
	}
	if !isValidPassword(newPassword) {
		return ErrWeakPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hashBytes)); err != nil {
		return err
	}
	if err := s.users.ClearResetCode(ctx, user.ID); err != nil {
		return err
	}
	s.logger.Info("password reset completed", zap.Int64("user_id", user.ID))
	return nil
}

func (s *AuthService) lookupByResetCode(ctx context.Context, emailAddr, code string) (domain.User, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	code = strings.TrimSpace(code)
	if !emailPattern.MatchString(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	if !isValidResetCode(code) {
		return domain.User{}, ErrResetCodeInvalid
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrResetCodeInvalid
		}
		return domain.User{}, err
	}
	if !user.HasActiveResetCode(time.Now().UTC()) {
		return domain.User{}, ErrResetCodeInvalid
	}
	if !CompareSecret(code, user.ResetCode) {
		return domain.User{}, ErrResetCodeInvalid
	}
	return user, nil
}

// Profile agrega al usuario sus proyectos y tareas asignadas.
type Profile struct {
	domain.User
	Projects      []domain.ProjectSummary `json:"projects"`
	AssignedTasks []domain.TaskSummary    `json:"assignedTasks"`
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, err
	}

	projects, err := s.projects.ListSummariesByAdmin(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	tasks, err := s.tasks.ListSummariesByUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, Projects: projects, AssignedTasks: tasks}, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, fields repository.ProfileUpdate) (domain.User, error) {
	if fields.IsEmpty() {
		return domain.User{}, ErrNoFields
	}
	if fields.Email != nil && !emailPattern.MatchString(strings.TrimSpace(*fields.Email)) {
		return domain.User{}, ErrInvalidEmail
	}
	user, err := s.users.UpdateProfile(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	if !isValidPassword(newPassword) {
		return ErrWeakPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hashBytes)); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.Int64("user_id", userID))
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListAll(ctx)
}

func (s *AuthService) DeleteUser(ctx context.Context, userID int64) error {
	removed, err := s.users.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrUserNotFound
	}
	s.logger.Info("user deleted", zap.Int64("user_id", userID))
	return nil
}

// isValidPassword aplica la politica: 6 a 20 caracteres y al menos una letra.
func isValidPassword(password string) bool {
	runes := []rune(password)
	if len(runes) < 6 || len(runes) > 20 {
		return false
	}
	for _, r := range runes {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isValidResetCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResetRateLimiter limita la frecuencia de solicitudes de reset por clave.
type ResetRateLimiter interface {
	Allow(key string) bool
}

type resetRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewResetRateLimiter crea un rate limiter en memoria.
func NewResetRateLimiter(window time.Duration, max int) ResetRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &resetRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *resetRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}
