package repositories

import (
	"database/sql"
	"errors"
	"strings"

	intconfig "ridepool/internal/config"
	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
)

type ReviewRepo struct {
	DB *sql.DB
}

func (r ReviewRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const reviewColumns = `id, ride_id, reviewer_id, reviewee_id, rating, COALESCE(comment, ''), created_at`

func scanReview(scan func(dest ...any) error) (models.Review, error) {
	var rv models.Review
	err := scan(
		&rv.ID,
		&rv.RideID,
		&rv.ReviewerID,
		&rv.RevieweeID,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
	)
	return rv, err
}

func (r ReviewRepo) CreateReview(rv models.Review) (int64, error) {
	if rv.Rating < 1 || rv.Rating > 5 {
		return 0, domain.ValidationError{Field: "rating", Msg: "must be 1-5"}
	}
	res, err := r.db().Exec(`
		INSERT INTO reviews (ride_id, reviewer_id, reviewee_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		rv.RideID, rv.ReviewerID, rv.RevieweeID, rv.Rating, strings.TrimSpace(rv.Comment),
	)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r ReviewRepo) GetReviewByID(id int64) (models.Review, error) {
	if id <= 0 {
		return models.Review{}, domain.ValidationError{Field: "review_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+reviewColumns+` FROM reviews WHERE id=? LIMIT 1`, id)
	rv, err := scanReview(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Review{}, domain.NotFoundError{Resource: "review"}
		}
		return models.Review{}, domain.InternalError{Err: err}
	}
	return rv, nil
}

func (r ReviewRepo) ListReviews(rideID int64, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews`
	args := []any{}
	if rideID > 0 {
		query += ` WHERE ride_id=?`
		args = append(args, rideID)
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		rv, err := scanReview(rows.Scan)
		if err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r ReviewRepo) DeleteReview(id int64) error {
	if id <= 0 {
		return domain.ValidationError{Field: "review_id", Msg: "invalid id"}
	}
	res, err := r.db().Exec(`DELETE FROM reviews WHERE id=?`, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "review"}
	}
	return nil
}
