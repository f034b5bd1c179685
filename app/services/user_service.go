package services

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"
	"sync"
	"time"

	"PosLedger/app/database"
	"PosLedger/app/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionTTL = 12 * time.Hour

// Session is one authenticated login
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserService handles logins and sessions. Sessions live in memory only; a
// restart logs everyone out. The sync listeners are tied to the session set:
// they start with the first active session and stop with the last, so nothing
// polls the remote store while nobody is signed in.
type UserService struct {
	local *database.LocalDB
	sync  *SyncService

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewUserService creates a new user service
func NewUserService(local *database.LocalDB, syncService *SyncService) *UserService {
	return &UserService{
		local:    local,
		sync:     syncService,
		sessions: make(map[string]*Session),
	}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Login verifies credentials and opens a session
func (s *UserService) Login(username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, NewValidationError("username and password are required")
	}

	var user models.User
	err := s.local.DB().Where("username = ?", username).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NewValidationError("invalid username or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, NewValidationError("invalid username or password")
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		Token:     token,
		Username:  user.Username,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(sessionTTL),
	}

	s.mu.Lock()
	wasEmpty := len(s.sessions) == 0
	s.sessions[token] = session
	s.mu.Unlock()

	if wasEmpty {
		s.sync.Start()
	}
	log.Printf("User %s logged in", user.Username)
	return session, nil
}

// Logout closes a session. Unknown tokens are ignored.
func (s *UserService) Logout(token string) {
	s.mu.Lock()
	session, ok := s.sessions[token]
	delete(s.sessions, token)
	empty := len(s.sessions) == 0
	s.mu.Unlock()

	if ok {
		log.Printf("User %s logged out", session.Username)
	}
	if empty {
		s.sync.Stop()
	}
}

// Validate returns the session for a token, expiring it if stale
func (s *UserService) Validate(token string) (*Session, bool) {
	s.mu.Lock()
	session, ok := s.sessions[token]
	if ok && time.Now().After(session.ExpiresAt) {
		delete(s.sessions, token)
		ok = false
	}
	empty := len(s.sessions) == 0
	s.mu.Unlock()

	if !ok {
		if empty {
			s.sync.Stop()
		}
		return nil, false
	}
	return session, true
}

// ActiveSessions returns the number of open sessions
func (s *UserService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ChangePassword re-hashes the user's password after verifying the old one
func (s *UserService) ChangePassword(username, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return NewValidationError("new password must be at least 6 characters")
	}

	var user models.User
	if err := s.local.DB().Where("username = ?", username).First(&user).Error; err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return NewValidationError("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.local.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("password", string(hash)).Error
	})
}
