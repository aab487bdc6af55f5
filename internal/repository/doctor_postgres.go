package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

const doctorColumns = `id, name, specialization, qualification, experience, bio, profile_image_url, is_active, created_at, updated_at`

type DoctorRepo struct {
	db *pgxpool.Pool
}

func NewDoctorRepository(db *pgxpool.Pool) *DoctorRepo {
	return &DoctorRepo{
		db: db,
	}
}

func (r *DoctorRepo) Create(ctx context.Context, dto domain.CreateDoctorDTO) (string, error) {
	query := `
		INSERT INTO doctors (id, name, specialization, qualification, experience, bio, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
	`

	id := uuid.NewString()
	_, err := r.db.Exec(ctx, query,
		id,
		dto.Name,
		dto.Specialization,
		dto.Qualification,
		dto.Experience,
		dto.Bio,
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("ошибка создания врача: %w", err)
	}

	return id, nil
}

func (r *DoctorRepo) GetByID(ctx context.Context, id string) (*domain.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	doctor, err := scanDoctor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("врач с id %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения врача: %w", err)
	}

	return doctor, nil
}

func (r *DoctorRepo) Update(ctx context.Context, id string, dto domain.UpdateDoctorDTO) error {
	setValues := []string{}
	args := []interface{}{id}
	argId := 2

	set := func(column string, value interface{}) {
		setValues = append(setValues, fmt.Sprintf("%s = $%d", column, argId))
		args = append(args, value)
		argId++
	}

	if dto.Name != nil {
		set("name", *dto.Name)
	}
	if dto.Specialization != nil {
		set("specialization", *dto.Specialization)
	}
	if dto.Qualification != nil {
		set("qualification", *dto.Qualification)
	}
	if dto.Experience != nil {
		set("experience", *dto.Experience)
	}
	if dto.Bio != nil {
		set("bio", *dto.Bio)
	}
	if dto.IsActive != nil {
		set("is_active", *dto.IsActive)
	}

	if len(setValues) == 0 {
		return nil
	}
	set("updated_at", time.Now())

	query := fmt.Sprintf("UPDATE doctors SET %s WHERE id = $1", strings.Join(setValues, ", "))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления врача: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("врач с id %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete deactivates the doctor. Rows stay because appointments reference them.
func (r *DoctorRepo) Delete(ctx context.Context, id string) error {
	active := false
	return r.Update(ctx, id, domain.UpdateDoctorDTO{IsActive: &active})
}

func (r *DoctorRepo) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, error) {
	whereClause, args := doctorWhere(filter)
	argCount := len(args) + 1
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM doctors
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, doctorColumns, whereClause, argCount, argCount+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	doctors := make([]domain.Doctor, 0)
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования врача: %w", err)
		}
		doctors = append(doctors, *doctor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return doctors, nil
}

func (r *DoctorRepo) CountByFilter(ctx context.Context, filter domain.DoctorFilter) (int, error) {
	whereClause, args := doctorWhere(filter)

	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM doctors "+whereClause, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета врачей: %w", err)
	}

	return count, nil
}

func (r *DoctorRepo) ListSpecializations(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT specialization
		FROM doctors
		WHERE is_active
		ORDER BY specialization
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения специализаций: %w", err)
	}
	defer rows.Close()

	specializations := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("ошибка сканирования специализации: %w", err)
		}
		specializations = append(specializations, s)
	}

	return specializations, rows.Err()
}

func (r *DoctorRepo) UpdateProfileImage(ctx context.Context, id string, imageURL string) error {
	query := `UPDATE doctors SET profile_image_url = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, imageURL, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка обновления фото врача: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("врач с id %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func doctorWhere(filter domain.DoctorFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filter.Specialization != nil && *filter.Specialization != "" {
		conditions = append(conditions, fmt.Sprintf("specialization ILIKE $%d", argCount))
		args = append(args, *filter.Specialization)
		argCount++
	}

	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR specialization ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+*filter.SearchTerm+"%")
		argCount++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argCount))
		args = append(args, *filter.IsActive)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func scanDoctor(row pgx.Row) (*domain.Doctor, error) {
	var doctor domain.Doctor
	err := row.Scan(
		&doctor.ID,
		&doctor.Name,
		&doctor.Specialization,
		&doctor.Qualification,
		&doctor.Experience,
		&doctor.Bio,
		&doctor.ProfileImageURL,
		&doctor.IsActive,
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}
