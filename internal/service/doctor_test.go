package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/storage"
)

type fakeStorage struct {
	uploaded []string
	deleted  []string
}

func (s *fakeStorage) UploadImage(_ context.Context, folder string, data []byte, filename string) (string, error) {
	if ct := http.DetectContentType(data); ct != "image/png" {
		return "", storage.ErrNotImage
	}
	url := "http://files/" + folder + "/" + filename
	s.uploaded = append(s.uploaded, url)
	return url, nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestDoctorPhotoUpload(t *testing.T) {
	store := newMemStore()
	files := &fakeStorage{}
	repos := store.repositories()
	svc := NewDoctorService(repos.Doctor, repos.Schedule, files, zap.NewNop())
	ctx := context.Background()

	doctor, err := svc.Create(ctx, domain.CreateDoctorDTO{Name: "Иван Смирнов", Specialization: "Кардиология"})
	require.NoError(t, err)

	url, err := svc.UploadPhoto(ctx, doctor.ID, pngHeader, "first.png")
	require.NoError(t, err)
	assert.Equal(t, "http://files/doctors/first.png", url)

	_, err = svc.UploadPhoto(ctx, doctor.ID, pngHeader, "second.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://files/doctors/first.png"}, files.deleted)

	_, err = svc.UploadPhoto(ctx, doctor.ID, []byte("plain text"), "notes.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UploadPhoto(ctx, "missing", pngHeader, "x.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	noStorage := NewDoctorService(repos.Doctor, repos.Schedule, nil, zap.NewNop())
	_, err = noStorage.UploadPhoto(ctx, doctor.ID, pngHeader, "x.png")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestDoctorCrud(t *testing.T) {
	store := newMemStore()
	repos := store.repositories()
	svc := NewDoctorService(repos.Doctor, repos.Schedule, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateDoctorDTO{Name: "Иван Смирнов"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	a, err := svc.Create(ctx, domain.CreateDoctorDTO{Name: "Иван Смирнов", Specialization: "Кардиология"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateDoctorDTO{Name: "Мария Лебедева", Specialization: "Неврология"})
	require.NoError(t, err)

	specs, err := svc.Specializations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Кардиология", "Неврология"}, specs)

	bio := "Опыт <15> лет"
	updated, err := svc.Update(ctx, a.ID, domain.UpdateDoctorDTO{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Опыт 15 лет", updated.Bio)

	spec := "Кардиология"
	list, total, err := svc.List(ctx, domain.DoctorFilter{Specialization: &spec, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, a.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, a.ID))
	got, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
