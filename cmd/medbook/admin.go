package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"medbook/internal/client/api"
	"medbook/internal/domain"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Команды администратора",
	}

	cmd.AddCommand(
		newAdminAppointmentsCmd(a),
		newAdminUsersCmd(a),
		newAdminDeactivateUserCmd(a),
		newAdminDoctorCreateCmd(a),
		newAdminDoctorDeleteCmd(a),
		newAdminDoctorPhotoCmd(a),
		newAdminScheduleAddCmd(a),
		newAdminScheduleDeleteCmd(a),
	)

	return cmd
}

func newAdminAppointmentsCmd(a *app) *cobra.Command {
	var status, doctorID, from, to string
	var limit, offset int

	cmd := &cobra.Command{
		Use:         "appointments",
		Short:       "Все записи клиники",
		Annotations: routed("/admin/appointments"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := api.AppointmentQuery{
				Status:   domain.AppointmentStatus(status),
				DoctorID: doctorID,
				Limit:    limit,
				Offset:   offset,
			}
			var err error
			if from != "" {
				if q.From, err = time.ParseInLocation(dateLayout, from, time.Local); err != nil {
					return fmt.Errorf("%w: --from", domain.ErrInvalidInput)
				}
			}
			if to != "" {
				if q.To, err = time.ParseInLocation(dateLayout, to, time.Local); err != nil {
					return fmt.Errorf("%w: --to", domain.ErrInvalidInput)
				}
			}

			list, page, err := a.client.AllAppointments(cmd.Context(), q)
			if err != nil {
				return err
			}
			a.machine.Load(list)

			if err := printAppointments(cmd.OutOrStdout(), "Записи", a.machine.All()); err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), page)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "SCHEDULED, COMPLETED или CANCELLED")
	cmd.Flags().StringVar(&doctorID, "doctor", "", "ID врача")
	cmd.Flags().StringVar(&from, "from", "", "с даты ГГГГ-ММ-ДД")
	cmd.Flags().StringVar(&to, "to", "", "по дату ГГГГ-ММ-ДД")
	cmd.Flags().IntVar(&limit, "limit", 20, "количество на странице")
	cmd.Flags().IntVar(&offset, "offset", 0, "смещение")

	return cmd
}

func newAdminUsersCmd(a *app) *cobra.Command {
	var q api.UserQuery
	var role string

	cmd := &cobra.Command{
		Use:         "users",
		Short:       "Пользователи",
		Annotations: routed("/admin/users"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Role = domain.UserRole(role)

			users, page, err := a.client.Users(cmd.Context(), q)
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tИМЯ\tEMAIL\tРОЛЬ\tАКТИВЕН")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.IsActive)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), page)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "PATIENT, DOCTOR или ADMIN")
	cmd.Flags().StringVar(&q.Search, "search", "", "поиск по имени или email")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "количество на странице")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "смещение")

	return cmd
}

func newAdminDeactivateUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "deactivate-user <userId>",
		Short:       "Деактивировать пользователя",
		Annotations: routed("/admin/users"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeactivateUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Пользователь %s деактивирован\n", args[0])
			return nil
		},
	}
}

func newAdminDoctorCreateCmd(a *app) *cobra.Command {
	var req domain.CreateDoctorDTO

	cmd := &cobra.Command{
		Use:         "doctor-create",
		Short:       "Добавить врача",
		Annotations: routed("/admin/doctors"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor, err := a.client.CreateDoctor(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Врач %s добавлен с ID %s\n", doctor.Name, doctor.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "имя врача")
	cmd.Flags().StringVar(&req.Specialization, "specialization", "", "специализация")
	cmd.Flags().StringVar(&req.Qualification, "qualification", "", "квалификация")
	cmd.Flags().StringVar(&req.Experience, "experience", "", "стаж")
	cmd.Flags().StringVar(&req.Bio, "bio", "", "описание")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("specialization")

	return cmd
}

func newAdminDoctorDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "doctor-delete <doctorId>",
		Short:       "Удалить врача",
		Annotations: routed("/admin/doctors"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteDoctor(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Врач %s удален\n", args[0])
			return nil
		},
	}
}

func newAdminDoctorPhotoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "doctor-photo <doctorId> <file>",
		Short:       "Загрузить фотографию врача",
		Annotations: routed("/admin/doctors"),
		Args:        cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			url, err := a.client.UploadDoctorPhoto(cmd.Context(), args[0], filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Фотография загружена: %s\n", url)
			return nil
		},
	}
}

func newAdminScheduleAddCmd(a *app) *cobra.Command {
	var day int
	var req domain.CreateScheduleDTO

	cmd := &cobra.Command{
		Use:         "schedule-add <doctorId>",
		Short:       "Добавить рабочее окно врача",
		Annotations: routed("/admin/doctors"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if day < 0 || day > 6 {
				return fmt.Errorf("%w: день недели от 0 (воскресенье) до 6", domain.ErrInvalidInput)
			}
			weekday := time.Weekday(day)
			req.DayOfWeek = &weekday

			schedule, err := a.client.CreateSchedule(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Окно %s добавлено: %s %s-%s, по %d мин\n",
				schedule.ID, schedule.DayOfWeek, schedule.StartTime, schedule.EndTime, schedule.SlotDurationMinutes)
			return nil
		},
	}

	cmd.Flags().IntVar(&day, "day", int(time.Monday), "день недели, 0 воскресенье")
	cmd.Flags().StringVar(&req.StartTime, "start", "09:00", "начало ЧЧ:ММ")
	cmd.Flags().StringVar(&req.EndTime, "end", "17:00", "конец ЧЧ:ММ")
	cmd.Flags().IntVar(&req.SlotDurationMinutes, "slot", domain.DefaultSlotDuration, "длительность приема в минутах")

	return cmd
}

func newAdminScheduleDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "schedule-delete <scheduleId>",
		Short:       "Удалить рабочее окно",
		Annotations: routed("/admin/doctors"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteSchedule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Окно %s удалено\n", args[0])
			return nil
		},
	}
}
