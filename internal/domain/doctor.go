package domain

import (
	"time"
)

type Doctor struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Specialization  string     `json:"specialization"`
	Qualification   string     `json:"qualification,omitempty"`
	Experience      string     `json:"experience,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	IsActive        bool       `json:"is_active"`
	Schedules       []Schedule `json:"schedules,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (d *Doctor) Snapshot() DoctorSnapshot {
	return DoctorSnapshot{
		ID:             d.ID,
		Name:           d.Name,
		Specialization: d.Specialization,
	}
}

type CreateDoctorDTO struct {
	Name           string `json:"name" binding:"required"`
	Specialization string `json:"specialization" binding:"required"`
	Qualification  string `json:"qualification"`
	Experience     string `json:"experience"`
	Bio            string `json:"bio" binding:"max=1000"`
}

type UpdateDoctorDTO struct {
	Name           *string `json:"name"`
	Specialization *string `json:"specialization"`
	Qualification  *string `json:"qualification"`
	Experience     *string `json:"experience"`
	Bio            *string `json:"bio" binding:"omitempty,max=1000"`
	IsActive       *bool   `json:"is_active"`
}

type DoctorFilter struct {
	Specialization *string `json:"specialization"`
	SearchTerm     *string `json:"search_term"`
	IsActive       *bool   `json:"is_active"`
	Limit          int     `json:"limit"`
	Offset         int     `json:"offset"`
}
