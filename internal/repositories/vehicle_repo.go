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

type VehicleRepo struct {
	DB *sql.DB
}

func (r VehicleRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const vehicleColumns = `id, owner_id, make, model, COALESCE(year, 0),
		COALESCE(color, ''), license_plate, capacity, created_at`

func scanVehicle(scan func(dest ...any) error) (models.Vehicle, error) {
	var v models.Vehicle
	err := scan(
		&v.ID,
		&v.OwnerID,
		&v.Make,
		&v.Model,
		&v.Year,
		&v.Color,
		&v.LicensePlate,
		&v.Capacity,
		&v.CreatedAt,
	)
	return v, err
}

func (r VehicleRepo) CreateVehicle(v models.Vehicle) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO vehicles (owner_id, make, model, year, color, license_plate, capacity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW())`,
		v.OwnerID,
		strings.TrimSpace(v.Make),
		strings.TrimSpace(v.Model),
		v.Year,
		strings.TrimSpace(v.Color),
		strings.ToUpper(strings.TrimSpace(v.LicensePlate)),
		v.Capacity,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "vehicle", Msg: "license plate already registered", Err: err}
		}
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r VehicleRepo) GetVehicleByID(id int64) (models.Vehicle, error) {
	if id <= 0 {
		return models.Vehicle{}, domain.ValidationError{Field: "vehicle_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+vehicleColumns+` FROM vehicles WHERE id=? LIMIT 1`, id)
	v, err := scanVehicle(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Vehicle{}, domain.NotFoundError{Resource: "vehicle"}
		}
		return models.Vehicle{}, domain.InternalError{Err: err}
	}
	return v, nil
}

func (r VehicleRepo) ListVehicles(ownerID int64, limit, offset int) ([]models.Vehicle, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles`
	args := []any{}
	if ownerID > 0 {
		query += ` WHERE owner_id=?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVehicle performs PATCH-style updates based on key presence.
func (r VehicleRepo) UpdateVehicle(id int64, upd models.VehicleUpdate) error {
	if id <= 0 {
		return domain.ValidationError{Field: "vehicle_id", Msg: "invalid id"}
	}
	sets := []string{}
	args := []any{}
	if upd.Make != nil {
		sets = append(sets, "make=?")
		args = append(args, strings.TrimSpace(*upd.Make))
	}
	if upd.Model != nil {
		sets = append(sets, "model=?")
		args = append(args, strings.TrimSpace(*upd.Model))
	}
	if upd.Year != nil {
		sets = append(sets, "year=?")
		args = append(args, *upd.Year)
	}
	if upd.Color != nil {
		sets = append(sets, "color=?")
		args = append(args, strings.TrimSpace(*upd.Color))
	}
	if upd.Capacity != nil {
		sets = append(sets, "capacity=?")
		args = append(args, *upd.Capacity)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db().Exec(`UPDATE vehicles SET `+joinSets(sets)+` WHERE id=?`, args...)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "vehicle"}
	}
	return nil
}

func (r VehicleRepo) DeleteVehicle(id int64) error {
	if id <= 0 {
		return domain.ValidationError{Field: "vehicle_id", Msg: "invalid id"}
	}
	res, err := r.db().Exec(`DELETE FROM vehicles WHERE id=?`, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "vehicle"}
	}
	return nil
}
