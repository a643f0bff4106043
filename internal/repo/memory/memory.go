// Package memory provides in-memory implementations of the repository
// interfaces. They mirror the Postgres semantics closely enough to back the
// service and handler test suites without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tasklane/server/internal/model"
	"github.com/tasklane/server/internal/repo"
)

// Store holds all in-memory state and implements repo.UserRepo,
// repo.TokenRepo and repo.TodoRepo through the accessors below.
type Store struct {
	mu     sync.Mutex
	users  map[uuid.UUID]model.User
	tokens map[string]model.AuthToken
	todos  map[uuid.UUID]model.ToDo
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:  make(map[uuid.UUID]model.User),
		tokens: make(map[string]model.AuthToken),
		todos:  make(map[uuid.UUID]model.ToDo),
	}
}

// Users returns the store as a repo.UserRepo.
func (s *Store) Users() repo.UserRepo { return (*userStore)(s) }

// Tokens returns the store as a repo.TokenRepo.
func (s *Store) Tokens() repo.TokenRepo { return (*tokenStore)(s) }

// Todos returns the store as a repo.TodoRepo.
func (s *Store) Todos() repo.TodoRepo { return (*todoStore)(s) }

type userStore Store

func (s *userStore) Create(_ context.Context, name, email, passwordHash string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return model.User{}, repo.ErrDuplicateEmail
		}
	}
	now := time.Now()
	user := model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *userStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return user, nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (s *userStore) SetOtp(_ context.Context, userID uuid.UUID, otpHash string, expiresAt time.Time, purpose model.OtpPurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	user.OtpHash = &otpHash
	user.OtpExpiresAt = &expiresAt
	user.OtpPurpose = &purpose
	user.UpdatedAt = time.Now()
	s.users[userID] = user
	return nil
}

func (s *userStore) MarkVerified(_ context.Context, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	user.EmailVerifiedAt = &at
	user.OtpHash, user.OtpExpiresAt, user.OtpPurpose = nil, nil, nil
	user.UpdatedAt = time.Now()
	s.users[userID] = user
	return nil
}

func (s *userStore) ResetPassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.OtpHash, user.OtpExpiresAt, user.OtpPurpose = nil, nil, nil
	user.UpdatedAt = time.Now()
	s.users[userID] = user
	return nil
}

// Delete removes the user and cascades to tokens and to-dos, matching the
// schema's ON DELETE CASCADE.
func (s *userStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repo.ErrNotFound
	}
	delete(s.users, userID)
	for hash, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, hash)
		}
	}
	for id, todo := range s.todos {
		if todo.UserID == userID {
			delete(s.todos, id)
		}
	}
	return nil
}

type tokenStore Store

func (s *tokenStore) Create(_ context.Context, id, userID uuid.UUID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = model.AuthToken{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *tokenStore) FindByHash(_ context.Context, tokenHash string) (model.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenHash]
	if !ok {
		return model.AuthToken{}, repo.ErrNotFound
	}
	return token, nil
}

func (s *tokenStore) DeleteByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenHash]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tokens, tokenHash)
	return nil
}

type todoStore Store

// ListByUser orders by due date ascending with nil due dates last, matching
// the Postgres default for ASC.
func (s *todoStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.ToDo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todos := make([]model.ToDo, 0)
	for _, todo := range s.todos {
		if todo.UserID == userID {
			todos = append(todos, todo)
		}
	}
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i].DueDate, todos[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return todos, nil
}

func (s *todoStore) Create(_ context.Context, todo model.ToDo) (model.ToDo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	todo.ID = uuid.New()
	todo.CreatedAt = now
	todo.UpdatedAt = now
	s.todos[todo.ID] = todo
	return todo, nil
}

func (s *todoStore) GetByID(_ context.Context, userID, id uuid.UUID) (model.ToDo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo, ok := s.todos[id]
	if !ok || todo.UserID != userID {
		return model.ToDo{}, repo.ErrNotFound
	}
	return todo, nil
}

func (s *todoStore) Update(_ context.Context, todo model.ToDo) (model.ToDo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.todos[todo.ID]
	if !ok || existing.UserID != todo.UserID {
		return model.ToDo{}, repo.ErrNotFound
	}
	todo.CreatedAt = existing.CreatedAt
	todo.UpdatedAt = time.Now()
	s.todos[todo.ID] = todo
	return todo, nil
}

func (s *todoStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo, ok := s.todos[id]
	if !ok || todo.UserID != userID {
		return repo.ErrNotFound
	}
	delete(s.todos, id)
	return nil
}
