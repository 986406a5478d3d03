package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	apperrors "tanrid/internal/errors"
	"tanrid/internal/model"
)

const usersFileName = "users.json"

// userRecord is the on-disk shape of a user.
type userRecord struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"password_hash"`
	Name                string     `json:"name,omitempty"`
	ResetTokenHash      *string    `json:"reset_token_hash,omitempty"`
	ResetTokenExpiresAt *time.Time `json:"reset_token_expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toRecord(u *model.User) userRecord {
	return userRecord{
		ID:                  u.ID,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		Name:                u.Name,
		ResetTokenHash:      u.ResetTokenHash,
		ResetTokenExpiresAt: u.ResetTokenExpiresAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (r userRecord) toModel() *model.User {
	return &model.User{
		ID:                  r.ID,
		Email:               r.Email,
		PasswordHash:        r.PasswordHash,
		Name:                r.Name,
		ResetTokenHash:      r.ResetTokenHash,
		ResetTokenExpiresAt: r.ResetTokenExpiresAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type jsonUserRepository struct {
	fs   afero.Fs
	dir  string
	path string
	now  func() time.Time

	mu sync.RWMutex
}

// NewJSONUserRepository stores users as a JSON array in dir/users.json.
// The directory and file are created on first use.
func NewJSONUserRepository(fs afero.Fs, dir string) UserRepository {
	return &jsonUserRepository{
		fs:   fs,
		dir:  dir,
		path: filepath.Join(dir, usersFileName),
		now:  time.Now,
	}
}

// ensureStore creates the data directory and an empty users file if missing.
// Callers hold mu for writing.
func (r *jsonUserRepository) ensureStore() error {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	exists, err := afero.Exists(r.fs, r.path)
	if err != nil {
		return fmt.Errorf("stat users file: %w", err)
	}
	if exists {
		return nil
	}
	return r.write(nil)
}

func (r *jsonUserRepository) read() ([]userRecord, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var records []userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode users file %s: %w", r.path, err)
	}
	return records, nil
}

// write replaces the users file through a temp file and rename.
func (r *jsonUserRepository) write(records []userRecord) error {
	if records == nil {
		records = []userRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := r.fs.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

// snapshot reads all records under the read lock.
func (r *jsonUserRepository) snapshot() ([]userRecord, error) {
	r.mu.RLock()
	records, err := r.read()
	r.mu.RUnlock()
	return records, err
}

func (r *jsonUserRepository) find(match func(userRecord) bool) (*model.User, error) {
	records, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if match(rec) {
			return rec.toModel(), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *jsonUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	normalized := model.NormalizeEmail(email)
	return r.find(func(rec userRecord) bool { return rec.Email == normalized })
}

func (r *jsonUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(rec userRecord) bool { return rec.ID == id })
}

func (r *jsonUserRepository) FindByResetToken(_ context.Context, tokenHash string) (*model.User, error) {
	if tokenHash == "" {
		return nil, apperrors.ErrUserNotFound
	}
	return r.find(func(rec userRecord) bool {
		return rec.ResetTokenHash != nil && *rec.ResetTokenHash == tokenHash
	})
}

func (r *jsonUserRepository) Create(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureStore(); err != nil {
		return nil, err
	}
	records, err := r.read()
	if err != nil {
		return nil, err
	}

	user.Email = model.NormalizeEmail(user.Email)
	for _, rec := range records {
		if rec.Email == user.Email {
			return nil, apperrors.ErrEmailAlreadyRegistered
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := r.write(append(records, toRecord(user))); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *jsonUserRepository) Update(_ context.Context, id string, upd UserUpdate) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureStore(); err != nil {
		return nil, err
	}
	records, err := r.read()
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ID != id {
			continue
		}
		if !upd.matchesResetToken(records[i].ResetTokenHash) {
			return nil, ErrResetTokenChanged
		}
		user := records[i].toModel()
		upd.apply(user, r.now())
		records[i] = toRecord(user)
		if err := r.write(records); err != nil {
			return nil, err
		}
		return user, nil
	}
	return nil, apperrors.ErrUserNotFound
}
