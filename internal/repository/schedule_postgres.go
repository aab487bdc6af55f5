package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

const scheduleColumns = `id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, created_at, updated_at`

type ScheduleRepo struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Create(ctx context.Context, doctorID string, dto domain.CreateScheduleDTO) (string, error) {
	query := `
		INSERT INTO schedules (
			id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`

	var day int16
	if dto.DayOfWeek != nil {
		day = int16(*dto.DayOfWeek)
	}

	id := uuid.NewString()
	_, err := r.db.Exec(ctx, query,
		id,
		doctorID,
		day,
		dto.StartTime,
		dto.EndTime,
		dto.SlotDurationMinutes,
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("ошибка создания расписания: %w", err)
	}

	return id, nil
}

func (r *ScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	schedule, err := scanSchedule(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("расписание с id %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения расписания: %w", err)
	}

	return schedule, nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления расписания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("расписание с id %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *ScheduleRepo) ListByDoctor(ctx context.Context, doctorID string) ([]domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE doctor_id = $1 ORDER BY day_of_week, start_time`
	return r.list(ctx, query, doctorID)
}

func (r *ScheduleRepo) ListByDoctorAndDay(ctx context.Context, doctorID string, day time.Weekday) ([]domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE doctor_id = $1 AND day_of_week = $2 ORDER BY start_time`
	return r.list(ctx, query, doctorID, int16(day))
}

func (r *ScheduleRepo) list(ctx context.Context, query string, args ...interface{}) ([]domain.Schedule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	schedules := make([]domain.Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования расписания: %w", err)
		}
		schedules = append(schedules, *schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return schedules, nil
}

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var schedule domain.Schedule
	var day int16
	err := row.Scan(
		&schedule.ID,
		&schedule.DoctorID,
		&day,
		&schedule.StartTime,
		&schedule.EndTime,
		&schedule.SlotDurationMinutes,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	schedule.DayOfWeek = time.Weekday(day)
	return &schedule, nil
}
