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

type GroupRepo struct {
	DB *sql.DB
}

func (r GroupRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r GroupRepo) CreateGroup(g models.Group) (int64, error) {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return 0, domain.ValidationError{Field: "name", Msg: "empty"}
	}
	res, err := r.db().Exec(`
		INSERT INTO groups (name, description, is_verified, created_at)
		VALUES (?, ?, ?, NOW())`,
		name, strings.TrimSpace(g.Description), g.Verified,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "group", Msg: "name already taken", Err: err}
		}
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r GroupRepo) GetGroupByID(id int64) (models.Group, error) {
	if id <= 0 {
		return models.Group{}, domain.ValidationError{Field: "group_id", Msg: "invalid id"}
	}
	var g models.Group
	err := r.db().QueryRow(`SELECT id, name, COALESCE(description, ''), is_verified, created_at FROM groups WHERE id=? LIMIT 1`, id).
		Scan(&g.ID, &g.Name, &g.Description, &g.Verified, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Group{}, domain.NotFoundError{Resource: "group"}
		}
		return models.Group{}, domain.InternalError{Err: err}
	}
	return g, nil
}

func (r GroupRepo) ListGroups(limit, offset int) ([]models.Group, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db().Query(`SELECT id, name, COALESCE(description, ''), is_verified, created_at FROM groups ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Verified, &g.CreatedAt); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r GroupRepo) DeleteGroup(id int64) error {
	if id <= 0 {
		return domain.ValidationError{Field: "group_id", Msg: "invalid id"}
	}
	res, err := r.db().Exec(`DELETE FROM groups WHERE id=?`, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "group"}
	}
	return nil
}

func (r GroupRepo) AddMember(groupID, userID int64) (int64, error) {
	if groupID <= 0 || userID <= 0 {
		return 0, domain.ValidationError{Field: "member", Msg: "invalid ids"}
	}
	res, err := r.db().Exec(`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, NOW())`,
		groupID, userID)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "group member", Msg: "already joined", Err: err}
		}
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r GroupRepo) RemoveMember(groupID, userID int64) error {
	if groupID <= 0 || userID <= 0 {
		return domain.ValidationError{Field: "member", Msg: "invalid ids"}
	}
	res, err := r.db().Exec(`DELETE FROM group_members WHERE group_id=? AND user_id=?`, groupID, userID)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "group member"}
	}
	return nil
}

func (r GroupRepo) ListMembers(groupID int64) ([]models.GroupMember, error) {
	if groupID <= 0 {
		return nil, domain.ValidationError{Field: "group_id", Msg: "invalid id"}
	}
	rows, err := r.db().Query(`SELECT id, user_id, group_id, joined_at FROM group_members WHERE group_id=? ORDER BY joined_at`, groupID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.GroupMember{}
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.GroupID, &m.JoinedAt); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
