package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/pkg/logger"
)

const minPasswordLength = 8

var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrShortPassword      = errors.New("password too short")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = domrepo.ErrEmailTaken
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool { return emailPattern.MatchString(email) }

// Service handles accounts. Signing up or logging in marks the caller's
// session authenticated; the session id is kept so action counters carry
// over.
type Service struct {
	users    domrepo.UserStore
	sessions *Sessions
	cost     int
	backups  Enqueuer
	log      *logger.Logger
}

type Option func(*Service)

// WithBackups enqueues a users backup after every signup and login.
func WithBackups(q Enqueuer) Option {
	return func(s *Service) { s.backups = q }
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(users domrepo.UserStore, sessions *Sessions, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Sessions() *Sessions { return s.sessions }

// Signup creates the account and authenticates sessionID as it.
func (s *Service) Signup(ctx context.Context, sessionID string, req models.SignupRequest) (*models.Session, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	if !ValidEmail(req.Email) {
		return nil, ErrInvalidEmail
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return nil, ErrShortPassword
	}
	if len(req.Password) > 72 {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: req.Username, Email: req.Email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domrepo.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.authenticate(ctx, sessionID, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("user signed up", logger.String("email", u.Email))
	s.backup(ctx, "signup")
	return sess, nil
}

// Login checks the credentials and authenticates sessionID.
func (s *Service) Login(ctx context.Context, sessionID string, req models.LoginRequest) (*models.Session, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	u, err := s.users.ByEmail(ctx, req.Email)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.authenticate(ctx, sessionID, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", logger.String("email", u.Email))
	s.backup(ctx, "login")
	return sess, nil
}

// Logout drops the identity from the session but keeps the session, and
// with it the action counters.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Authenticated = false
	sess.Username = ""
	sess.Email = ""
	return s.sessions.Save(ctx, sess)
}

func (s *Service) authenticate(ctx context.Context, sessionID string, u *models.User) (*models.Session, error) {
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Authenticated = true
	sess.Username = u.Username
	sess.Email = u.Email
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) backup(ctx context.Context, reason string) {
	if s.backups == nil {
		return
	}
	err := s.backups.Enqueue(ctx, JobUsersBackup, BackupPayload{Path: s.users.Path(), Reason: reason})
	if err != nil {
		s.log.Warn("users backup not enqueued", logger.String("reason", reason), logger.Error(err))
	}
}
