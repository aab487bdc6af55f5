package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"medbook/internal/domain"
)

type UserQuery struct {
	Role   domain.UserRole
	Search string
	Limit  int
	Offset int
}

// AllAppointments lists every appointment of the clinic. Admin only.
func (c *Client) AllAppointments(ctx context.Context, q AppointmentQuery) ([]domain.Appointment, Page, error) {
	return c.listAppointments(ctx, "/admin/appointments", q)
}

func (c *Client) Users(ctx context.Context, q UserQuery) ([]domain.User, Page, error) {
	v := url.Values{}
	if q.Role != "" {
		v.Set("role", string(q.Role))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	setPaging(v, q.Limit, q.Offset)

	var users []domain.User
	env, err := c.doJSON(ctx, http.MethodGet, "/users", v, nil, &users)
	if err != nil {
		return nil, Page{}, err
	}
	return users, env.Page, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, req domain.UpdateUserDTO) (*domain.User, error) {
	var user domain.User
	if _, err := c.doJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(id), nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeactivateUser(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
	return err
}

func (c *Client) CreateDoctor(ctx context.Context, req domain.CreateDoctorDTO) (*domain.Doctor, error) {
	var doctor domain.Doctor
	if _, err := c.doJSON(ctx, http.MethodPost, "/doctors", nil, req, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (c *Client) UpdateDoctor(ctx context.Context, id string, req domain.UpdateDoctorDTO) (*domain.Doctor, error) {
	var doctor domain.Doctor
	if _, err := c.doJSON(ctx, http.MethodPut, "/doctors/"+url.PathEscape(id), nil, req, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (c *Client) DeleteDoctor(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/doctors/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// UploadDoctorPhoto sends the image as multipart form data and returns its URL.
func (c *Client) UploadDoctorPhoto(ctx context.Context, id, filename string, photo io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		return "", fmt.Errorf("ошибка подготовки файла: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return "", fmt.Errorf("ошибка чтения файла: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("ошибка подготовки файла: %w", err)
	}

	env, err := c.send(ctx, http.MethodPost, "/doctors/"+url.PathEscape(id)+"/photo", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var resp struct {
		ProfileImageURL string `json:"profile_image_url"`
	}
	if err := decodeData(env, &resp); err != nil {
		return "", err
	}
	return resp.ProfileImageURL, nil
}

func (c *Client) CreateSchedule(ctx context.Context, doctorID string, req domain.CreateScheduleDTO) (*domain.Schedule, error) {
	var schedule domain.Schedule
	if _, err := c.doJSON(ctx, http.MethodPost, "/doctors/"+url.PathEscape(doctorID)+"/schedules", nil, req, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/doctors/schedules/"+url.PathEscape(id), nil, nil, nil)
	return err
}
