package repository

import (
	"context"
	"strings"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles accounts, their profiles and device locks.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `u.id, u.email, u.username, u.first_name, u.last_name, u.password_hash,
	u.role, u.is_active, u.created_at, u.updated_at`

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// Create inserts a user and an empty profile in one transaction.
// Returns a *DuplicateError on email or username conflicts.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (email, username, first_name, last_name, password_hash, role, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at, updated_at`,
			u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.IsActive,
		).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO user_profiles (user_id) VALUES ($1)`, u.ID)
		return err
	})
	return mapPgError(err)
}

// GetByIdentifier retrieves a user by email (case-insensitive) or username.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	u := &model.User{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u
		 WHERE LOWER(u.email) = LOWER($1) OR u.username = $1
		 ORDER BY (LOWER(u.email) = LOWER($1)) DESC
		 LIMIT 1`, identifier)
	if err := scanUser(row, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	if err := scanUser(row, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetProfile retrieves a user's profile.
func (r *UserRepository) GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	p := &model.UserProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, phone, address, access_start, access_end, device_fingerprint
		 FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Phone, &p.Address, &p.AccessStart, &p.AccessEnd, &p.DeviceFingerprint)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// BindFingerprint stores fingerprint as the user's device when none is bound
// yet. Reports whether the binding happened.
func (r *UserRepository) BindFingerprint(ctx context.Context, userID int64, fingerprint string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_profiles (user_id, device_fingerprint) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET device_fingerprint = EXCLUDED.device_fingerprint
		 WHERE user_profiles.device_fingerprint = ''`,
		userID, fingerprint)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// LockDevice gets or creates the lock row for (user, fingerprint) and marks it locked.
func (r *UserRepository) LockDevice(ctx context.Context, userID int64, fingerprint, reason string) (*model.DeviceLock, error) {
	l := &model.DeviceLock{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO device_locks (user_id, device_fingerprint, is_locked, locked_reason)
		 VALUES ($1, $2, TRUE, $3)
		 ON CONFLICT (user_id, device_fingerprint)
		 DO UPDATE SET is_locked = TRUE, locked_reason = EXCLUDED.locked_reason, updated_at = CURRENT_TIMESTAMP
		 RETURNING id, user_id, device_fingerprint, is_locked, locked_reason, created_at, updated_at`,
		userID, fingerprint, reason,
	).Scan(&l.ID, &l.UserID, &l.DeviceFingerprint, &l.IsLocked, &l.LockedReason, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ResetDevice clears the bound fingerprint and unlocks every lock of the user.
// Returns pgx.ErrNoRows when the user has no profile.
func (r *UserRepository) ResetDevice(ctx context.Context, userID int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE user_profiles SET device_fingerprint = '' WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		_, err = tx.Exec(ctx,
			`UPDATE device_locks SET is_locked = FALSE, locked_reason = '', updated_at = CURRENT_TIMESTAMP
			 WHERE user_id = $1`, userID)
		return err
	})
}

// UpdateAccess sets the access window of a user.
func (r *UserRepository) UpdateAccess(ctx context.Context, userID int64, start, end time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_profiles SET access_start = $2, access_end = $3 WHERE user_id = $1`,
		userID, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListPaginated returns users with their profiles, newest first.
func (r *UserRepository) ListPaginated(ctx context.Context, f model.UserFilter, limit, offset int) ([]model.UserWithProfile, int, error) {
	var conds []string
	var args []interface{}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		ph := placeholder(args)
		conds = append(conds, "(u.email ILIKE "+ph+" OR u.username ILIKE "+ph+")")
	}
	if f.Role != "" {
		args = append(args, f.Role)
		conds = append(conds, "u.role = "+placeholder(args))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitPh := placeholder(args)
	args = append(args, offset)
	offsetPh := placeholder(args)

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+`,
		        COALESCE(p.phone, ''), COALESCE(p.address, ''), p.access_start, p.access_end,
		        COALESCE(p.device_fingerprint, '')
		 FROM users u LEFT JOIN user_profiles p ON p.user_id = u.id`+where+
			` ORDER BY u.created_at DESC LIMIT `+limitPh+` OFFSET `+offsetPh, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	now := time.Now()
	users := []model.UserWithProfile{}
	for rows.Next() {
		var u model.UserWithProfile
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash,
			&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
			&u.Profile.Phone, &u.Profile.Address, &u.Profile.AccessStart, &u.Profile.AccessEnd,
			&u.Profile.DeviceFingerprint); err != nil {
			return nil, 0, err
		}
		u.Profile.UserID = u.ID
		u.HasActiveAccess = u.Profile.HasActiveAccess(now)
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// ListDeviceLocks returns device locks, optionally only those still locked.
func (r *UserRepository) ListDeviceLocks(ctx context.Context, lockedOnly bool, limit, offset int) ([]model.DeviceLock, int, error) {
	where := ""
	if lockedOnly {
		where = " WHERE is_locked = TRUE"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM device_locks`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, device_fingerprint, is_locked, locked_reason, created_at, updated_at
		 FROM device_locks`+where+` ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	locks := []model.DeviceLock{}
	for rows.Next() {
		var l model.DeviceLock
		if err := rows.Scan(&l.ID, &l.UserID, &l.DeviceFingerprint, &l.IsLocked, &l.LockedReason,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		locks = append(locks, l)
	}
	return locks, total, rows.Err()
}

// UnlockDevice clears a single device lock.
func (r *UserRepository) UnlockDevice(ctx context.Context, lockID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE device_locks SET is_locked = FALSE, locked_reason = '', updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`, lockID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetRole changes a user's role.
func (r *UserRepository) SetRole(ctx context.Context, userID int64, role model.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
