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

const appointmentSelect = `
	SELECT a.id, a.doctor_id, a.patient_id, a.appointment_date_time, a.status, a.reason, a.notes, a.created_at, a.updated_at,
	       d.name AS doctor_name, d.specialization AS doctor_specialization,
	       u.name AS patient_name, u.email AS patient_email
	FROM appointments a
	JOIN doctors d ON a.doctor_id = d.id
	JOIN users u ON a.patient_id = u.id
`

type AppointmentRepo struct {
	db *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepo {
	return &AppointmentRepo{
		db: db,
	}
}

func (r *AppointmentRepo) Create(ctx context.Context, patientID string, dto domain.CreateAppointmentDTO) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := slotTaken(ctx, tx, dto.DoctorID, dto.AppointmentDateTime, ""); err != nil {
		return "", err
	}

	query := `
		INSERT INTO appointments (id, doctor_id, patient_id, appointment_date_time, status, reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	id := uuid.NewString()
	_, err = tx.Exec(ctx, query,
		id,
		dto.DoctorID,
		patientID,
		dto.AppointmentDateTime,
		domain.AppointmentStatusScheduled,
		dto.Reason,
		dto.Notes,
		time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrSlotUnavailable
		}
		return "", fmt.Errorf("ошибка создания записи на прием: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return id, nil
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	appointment, err := scanAppointment(r.db.QueryRow(ctx, appointmentSelect+"WHERE a.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("запись на прием с id %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения записи на прием: %w", err)
	}

	return appointment, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, id string, dto domain.UpdateAppointmentDTO) error {
	var updateFields []string
	args := []interface{}{id}
	argCount := 2

	if dto.Reason != nil {
		updateFields = append(updateFields, fmt.Sprintf("reason = $%d", argCount))
		args = append(args, *dto.Reason)
		argCount++
	}

	if dto.Notes != nil {
		updateFields = append(updateFields, fmt.Sprintf("notes = $%d", argCount))
		args = append(args, *dto.Notes)
		argCount++
	}

	if len(updateFields) == 0 {
		return nil
	}

	updateFields = append(updateFields, fmt.Sprintf("updated_at = $%d", argCount))
	args = append(args, time.Now())

	query := fmt.Sprintf(`
		UPDATE appointments
		SET %s
		WHERE id = $1
	`, strings.Join(updateFields, ", "))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления записи на прием: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("запись на прием с id %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	tag, err := r.db.Exec(ctx, query, status, time.Now(), id, domain.AppointmentStatusScheduled)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: запись %s уже не в статусе %s", domain.ErrInvalidTransition, id, domain.AppointmentStatusScheduled)
	}

	return nil
}

func (r *AppointmentRepo) Reschedule(ctx context.Context, id string, dateTime time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var doctorID string
	var status domain.AppointmentStatus
	err = tx.QueryRow(ctx, `SELECT doctor_id, status FROM appointments WHERE id = $1 FOR UPDATE`, id).Scan(&doctorID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("запись на прием с id %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("ошибка получения текущих данных записи: %w", err)
	}

	if status != domain.AppointmentStatusScheduled {
		return fmt.Errorf("%w: запись в статусе %s", domain.ErrInvalidTransition, status)
	}

	if err := slotTaken(ctx, tx, doctorID, dateTime, id); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET appointment_date_time = $1, updated_at = $2
		WHERE id = $3
	`, dateTime, time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("ошибка переноса записи на прием: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return nil
}

func (r *AppointmentRepo) List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	whereClause, args := appointmentWhere(filter)
	argCount := len(args) + 1
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`%s
		%s
		ORDER BY a.appointment_date_time DESC
		LIMIT $%d OFFSET $%d
	`, appointmentSelect, whereClause, argCount, argCount+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	appointments := make([]domain.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки записи: %w", err)
		}
		appointments = append(appointments, *appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return appointments, nil
}

func (r *AppointmentRepo) CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error) {
	whereClause, args := appointmentWhere(filter)

	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM appointments a "+whereClause, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}

	return count, nil
}

// BookedTimes returns start times of non-cancelled appointments of a doctor in [from, to).
func (r *AppointmentRepo) BookedTimes(ctx context.Context, doctorID string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT appointment_date_time
		FROM appointments
		WHERE doctor_id = $1
		AND appointment_date_time >= $2
		AND appointment_date_time < $3
		AND status <> $4
	`

	rows, err := r.db.Query(ctx, query, doctorID, from, to, domain.AppointmentStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения занятых слотов: %w", err)
	}
	defer rows.Close()

	var booked []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("ошибка сканирования слота: %w", err)
		}
		booked = append(booked, t)
	}

	return booked, rows.Err()
}

func slotTaken(ctx context.Context, tx pgx.Tx, doctorID string, at time.Time, excludeID string) error {
	checkQuery := `
		SELECT COUNT(*)
		FROM appointments
		WHERE doctor_id = $1
		AND appointment_date_time = $2
		AND status <> $3
		AND ($4 = '' OR id::text <> $4)
	`

	var count int
	err := tx.QueryRow(ctx, checkQuery, doctorID, at, domain.AppointmentStatusCancelled, excludeID).Scan(&count)
	if err != nil {
		return fmt.Errorf("ошибка проверки доступности слота: %w", err)
	}

	if count > 0 {
		return domain.ErrSlotUnavailable
	}

	return nil
}

func appointmentWhere(filter domain.AppointmentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("a.patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}

	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("a.doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argCount))
		args = append(args, *filter.Status)
		argCount++
	}

	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.appointment_date_time >= $%d", argCount))
		args = append(args, *filter.StartDate)
		argCount++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.appointment_date_time <= $%d", argCount))
		args = append(args, *filter.EndDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var appointment domain.Appointment
	doctor := &domain.DoctorSnapshot{}
	patient := &domain.PatientSnapshot{}

	err := row.Scan(
		&appointment.ID,
		&appointment.DoctorID,
		&appointment.PatientID,
		&appointment.AppointmentDateTime,
		&appointment.Status,
		&appointment.Reason,
		&appointment.Notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
		&doctor.Name,
		&doctor.Specialization,
		&patient.Name,
		&patient.Email,
	)
	if err != nil {
		return nil, err
	}

	doctor.ID = appointment.DoctorID
	patient.ID = appointment.PatientID
	appointment.Doctor = doctor
	appointment.Patient = patient

	return &appointment, nil
}
