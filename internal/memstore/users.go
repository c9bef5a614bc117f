package memstore

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

type userRepo struct {
	s *Store
}

func emailTaken(st *state, email string, except uuid.UUID) bool {
	for id, u := range st.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r userRepo) Create(ctx context.Context, u *user.User) (uuid.UUID, error) {
	id := u.ID
	if id == uuid.Nil {
		var err error
		if id, err = uuid.NewV4(); err != nil {
			return uuid.Nil, err
		}
	}

	err := r.s.write(ctx, func(st *state) error {
		if emailTaken(st, u.Email, uuid.Nil) {
			return user.ErrEmailExists
		}
		now := time.Now().UTC()
		u.ID = id
		u.CreatedAt, u.UpdatedAt = now, now
		st.users[id] = *u
		st.track(id)
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	var (
		u  user.User
		ok bool
	)
	r.s.read(func(st *state) { u, ok = st.users[id] })
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	var found *user.User
	r.s.read(func(st *state) {
		for _, u := range st.users {
			if u.Email == email {
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, user.ErrNotFound
	}
	return found, nil
}

func (r userRepo) List(_ context.Context) ([]user.User, error) {
	var users []user.User
	r.s.read(func(st *state) {
		ids := make([]uuid.UUID, 0, len(st.users))
		for id := range st.users {
			ids = append(ids, id)
		}
		st.sortNewestFirst(ids)

		users = make([]user.User, len(ids))
		// Oldest first, like the Postgres ORDER BY created_at.
		for i, id := range ids {
			users[len(ids)-1-i] = st.users[id]
		}
	})
	return users, nil
}

func (r userRepo) Update(ctx context.Context, u *user.User) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.users[u.ID]
		if !ok {
			return user.ErrNotFound
		}
		if emailTaken(st, u.Email, u.ID) {
			return user.ErrEmailExists
		}

		current.Username = u.Username
		current.Email = u.Email
		current.IsAdmin = u.IsAdmin
		if u.PasswordHash != "" {
			current.PasswordHash = u.PasswordHash
		}
		current.UpdatedAt = time.Now().UTC()
		st.users[u.ID] = current
		return nil
	})
}

func (r userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return user.ErrNotFound
		}
		delete(st.users, id)
		return nil
	})
}
