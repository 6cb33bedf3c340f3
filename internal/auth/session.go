// Package auth holds the client's login state. The session is constructed
// once at startup and passed to everything that needs it; clearing it (logout
// or a 401 from the backend) drops the token and the cached user atomically.
package auth

import (
	"sync"

	"github.com/HaVuDong/ecome-customer-app/internal/domain"
)

type User struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) SetCredentials(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// DefaultShipping prefills the checkout form from the logged-in profile,
// the same way the mobile client seeds its shipping inputs.
func (s *Session) DefaultShipping() domain.ShippingInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.ShippingInfo{}
	}
	return domain.ShippingInfo{
		Name:    s.user.FullName,
		Phone:   s.user.Phone,
		Address: s.user.Address,
	}
}

// Token implements api.TokenSource.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Invalidate implements api.TokenSource. Called on 401 responses.
func (s *Session) Invalidate() {
	s.Clear()
}
