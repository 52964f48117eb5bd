package repositories

import (
	"database/sql"
	"errors"
	"strings"

	intconfig "ridepool/internal/config"
	intdb "ridepool/internal/db"
	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
)

type UserRepo struct {
	DB *sql.DB
}

func (r UserRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const userColumns = `id, email, password_hash, full_name, COALESCE(phone, ''),
		identity_id, COALESCE(driver_license, ''), role, user_is_verified,
		created_at, updated_at`

func scanUser(scan func(dest ...any) error) (models.User, error) {
	var u models.User
	err := scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Phone,
		&u.IdentityID,
		&u.DriverLicense,
		&u.Role,
		&u.Verified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r UserRepo) CreateUser(u models.User) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO users
		(email, password_hash, full_name, phone, identity_id, driver_license,
		 role, user_is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash,
		u.FullName,
		intdb.NullIfEmpty(u.Phone),
		u.IdentityID,
		intdb.NullIfEmpty(u.DriverLicense),
		u.Role,
		u.Verified,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "user", Msg: "email, phone or identity already registered", Err: err}
		}
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r UserRepo) GetUserByID(id int64) (models.User, error) {
	if id <= 0 {
		return models.User{}, domain.ValidationError{Field: "user_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user"}
		}
		return models.User{}, domain.InternalError{Err: err}
	}
	return u, nil
}

func (r UserRepo) GetUserByEmail(email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.User{}, domain.ValidationError{Field: "email", Msg: "empty"}
	}
	row := r.db().QueryRow(`SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user"}
		}
		return models.User{}, domain.InternalError{Err: err}
	}
	return u, nil
}

func (r UserRepo) ListUsers(limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db().Query(`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUser performs PATCH-style updates based on key presence.
func (r UserRepo) UpdateUser(id int64, upd models.UserUpdate) error {
	if id <= 0 {
		return domain.ValidationError{Field: "user_id", Msg: "invalid id"}
	}
	sets := []string{}
	args := []any{}
	if upd.FullName != nil {
		sets = append(sets, "full_name=?")
		args = append(args, strings.TrimSpace(*upd.FullName))
	}
	if upd.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, intdb.NullIfEmpty(strings.TrimSpace(*upd.Phone)))
	}
	if upd.DriverLicense != nil {
		sets = append(sets, "driver_license=?")
		args = append(args, intdb.NullIfEmpty(strings.TrimSpace(*upd.DriverLicense)))
	}
	if upd.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *upd.Role)
	}
	if upd.Password != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *upd.Password)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)
	res, err := r.db().Exec(`UPDATE users SET `+joinSets(sets)+` WHERE id=?`, args...)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return domain.ConflictError{Resource: "user", Msg: "phone already registered", Err: err}
		}
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}

func (r UserRepo) DeleteUser(id int64) error {
	if id <= 0 {
		return domain.ValidationError{Field: "user_id", Msg: "invalid id"}
	}
	res, err := r.db().Exec(`DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}
