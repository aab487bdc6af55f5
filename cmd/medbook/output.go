package main

import (
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"medbook/internal/client/api"
	"medbook/internal/domain"
	"medbook/pkg/validator"
)

const (
	dateLayout     = validator.DateLayout
	dateTimeLayout = validator.DateLayout + " " + validator.ClockLayout
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// parseDateTime reads "YYYY-MM-DD HH:MM" in local time.
func parseDateTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateTimeLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: время должно быть в формате ГГГГ-ММ-ДД ЧЧ:ММ", domain.ErrInvalidInput)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.Local().Format(dateTimeLayout)
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func printPage(out io.Writer, page api.Page) {
	if page.TotalPages > 1 {
		fmt.Fprintf(out, "Страница %d из %d, всего %d\n", page.Page, page.TotalPages, page.TotalCount)
	}
}

func printAppointments(out io.Writer, title string, list []domain.Appointment) error {
	fmt.Fprintf(out, "%s (%d)\n", title, len(list))
	if len(list) == 0 {
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tВРЕМЯ\tВРАЧ\tПАЦИЕНТ\tСТАТУС\tПРИЧИНА")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, formatTime(a.AppointmentDateTime), doctorName(a), patientName(a), a.Status, a.Reason)
	}
	return w.Flush()
}

func doctorName(a domain.Appointment) string {
	if a.Doctor != nil && a.Doctor.Name != "" {
		return a.Doctor.Name
	}
	return a.DoctorID
}

func patientName(a domain.Appointment) string {
	if a.Patient != nil && a.Patient.Name != "" {
		return a.Patient.Name
	}
	return a.PatientID
}
