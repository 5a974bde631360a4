package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/storage/kv"
)

// User is a staff account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal returns the principal acting as u.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, DisplayName: u.Name, Role: u.Role}
}

// DefaultUsers returns the staff accounts of a fresh installation.
func DefaultUsers() []User {
	return []User{
		{ID: "1", Name: "John Doe", Email: "admin@donerg.com", Role: RoleAdmin},
		{ID: "2", Name: "Jane Smith", Email: "cashier@donerg.com", Role: RoleCashier},
		{ID: "3", Name: "Mike Wilson", Email: "kitchen@donerg.com", Role: RoleKitchen},
	}
}

// Directory holds the staff accounts.
type Directory struct {
	persist kv.Persister
	lg      *zap.Logger
	loader  kv.Loader

	mu    sync.RWMutex
	users []User
}

// NewDirectory creates a Directory holding DefaultUsers.
func NewDirectory(persist kv.Persister, lg *zap.Logger) *Directory {
	return &Directory{persist: persist, lg: lg, users: DefaultUsers()}
}

// Load replaces the accounts with the persisted ones, if any. If they cannot
// be read, the defaults stay and accounts are read-only until Sync reads
// them.
func (d *Directory) Load(ctx context.Context, store kv.Store) {
	d.loader.OnCorrupt = func(key string, err error) {
		d.lg.Warn("Stored users unreadable, keeping defaults", zap.String("key", key), zap.Error(err))
	}
	d.loader.Add(kv.KeyUsers, func(ctx context.Context, store kv.Store) error {
		var users []User
		found, err := kv.Load(ctx, store, kv.KeyUsers, &users)
		if err != nil || !found {
			return err
		}
		d.mu.Lock()
		d.users = users
		d.mu.Unlock()
		return nil
	})

	if err := d.Sync(ctx, store); err != nil {
		d.lg.Warn("Load users, keeping defaults until storage recovers", zap.Error(err))
	}
}

// Sync retries reading the accounts if Load could not.
func (d *Directory) Sync(ctx context.Context, store kv.Store) error {
	return d.loader.Sync(ctx, store)
}

func (d *Directory) writable() error {
	if !d.loader.Loaded(kv.KeyUsers) {
		return poserr.TransientIO("users not loaded from storage yet")
	}
	return nil
}

// Users lists all accounts.
func (d *Directory) Users() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]User(nil), d.users...)
}

// User returns the account with the given id.
func (d *Directory) User(id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, poserr.NotFound("user", id)
}

// Put creates or replaces an account.
func (d *Directory) Put(u User) (User, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return User{}, poserr.InvalidInput("user name required")
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return User{}, err
	}
	if err := d.writable(); err != nil {
		return User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	replaced := false
	for i := range d.users {
		if d.users[i].ID == u.ID {
			d.users[i] = u
			replaced = true
			break
		}
	}
	if !replaced {
		d.users = append(d.users, u)
	}
	d.persist.Persist(kv.KeyUsers, d.users)
	return u, nil
}

// Delete removes an account.
func (d *Directory) Delete(id string) error {
	if err := d.writable(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.users {
		if d.users[i].ID == id {
			d.users = append(d.users[:i], d.users[i+1:]...)
			d.persist.Persist(kv.KeyUsers, d.users)
			return nil
		}
	}
	return poserr.NotFound("user", id)
}
