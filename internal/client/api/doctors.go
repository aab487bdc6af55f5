package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"medbook/internal/domain"
)

type DoctorQuery struct {
	Specialization string
	Search         string
	Limit          int
	Offset         int
}

func (q DoctorQuery) values() url.Values {
	v := url.Values{}
	if q.Specialization != "" {
		v.Set("specialization", q.Specialization)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	setPaging(v, q.Limit, q.Offset)
	return v
}

func (c *Client) Doctors(ctx context.Context, q DoctorQuery) ([]domain.Doctor, Page, error) {
	var doctors []domain.Doctor
	env, err := c.doJSON(ctx, http.MethodGet, "/doctors", q.values(), nil, &doctors)
	if err != nil {
		return nil, Page{}, err
	}
	return doctors, env.Page, nil
}

func (c *Client) Doctor(ctx context.Context, id string) (*domain.Doctor, error) {
	var doctor domain.Doctor
	if _, err := c.doJSON(ctx, http.MethodGet, "/doctors/"+url.PathEscape(id), nil, nil, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (c *Client) Specializations(ctx context.Context) ([]string, error) {
	var specs []string
	if _, err := c.doJSON(ctx, http.MethodGet, "/doctors/specializations", nil, nil, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func (c *Client) Schedules(ctx context.Context, doctorID string) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	if _, err := c.doJSON(ctx, http.MethodGet, "/doctors/"+url.PathEscape(doctorID)+"/schedules", nil, nil, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// AvailableSlots returns the free start times of a doctor on date (YYYY-MM-DD).
func (c *Client) AvailableSlots(ctx context.Context, doctorID, date string) ([]time.Time, error) {
	var resp struct {
		Slots []time.Time `json:"slots"`
	}
	query := url.Values{"date": {date}}
	if _, err := c.doJSON(ctx, http.MethodGet, "/doctors/"+url.PathEscape(doctorID)+"/available-slots", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Slots, nil
}

func setPaging(v url.Values, limit, offset int) {
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
}
