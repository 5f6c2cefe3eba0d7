package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"postwall/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerUserRepository implements UserRepository using BadgerDB. The
// e-mail index lives under its own prefix and is written in the same
// transaction as the user record.
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// userRecord is the stored form of a user. models.User hides the password
// hash from JSON, so it cannot be persisted as is.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func newUserRecord(u *models.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func unmarshalUser(data []byte, user *models.User) error {
	var rec userRecord
	if err := unmarshalEntity(data, &rec); err != nil {
		return err
	}
	*user = models.User{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}
	return nil
}

func emailKey(email string) []byte {
	return []byte(UserEmailKeyPrefix + strings.ToLower(email))
}

// Create stores user, failing with ErrDuplicate when the e-mail is taken.
func (r *BadgerUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	data, err := marshalEntity(newUserRecord(user))
	if err != nil {
		return err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(user.Email)); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set([]byte(UserKeyPrefix+user.ID), data); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), []byte(user.ID))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, badger.ErrConflict):
		// A concurrent registration committed the same e-mail first.
		return ErrDuplicate
	default:
		return unavailable(err)
	}
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, wrapLookup(err)
}

// GetByEmail resolves the e-mail index, then loads the user.
func (r *BadgerUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getUser(txn, string(id))
		return err
	})
	return user, wrapLookup(err)
}

// List returns every user in key order.
func (r *BadgerUserRepository) List(ctx context.Context) ([]*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	users := []*models.User{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(UserKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user models.User
			err := it.Item().Value(func(val []byte) error {
				return unmarshalUser(val, &user)
			})
			if err != nil {
				return err
			}
			users = append(users, &user)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return users, nil
}

func getUser(txn *badger.Txn, id string) (*models.User, error) {
	item, err := txn.Get([]byte(UserKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := item.Value(func(val []byte) error { return unmarshalUser(val, &user) }); err != nil {
		return nil, err
	}
	return &user, nil
}

func wrapLookup(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return unavailable(err)
}
