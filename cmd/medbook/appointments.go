package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medbook/internal/client/session"
)

func newBookCmd(a *app) *cobra.Command {
	var at, reason, notes string

	cmd := &cobra.Command{
		Use:         "book <doctorId>",
		Short:       "Записаться к врачу",
		Annotations: routed("/booking/:doctorId"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseDateTime(at)
			if err != nil {
				return err
			}

			appt, err := a.machine.Book(cmd.Context(), args[0], when, reason, notes)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Запись %s создана на %s, статус %s\n",
				appt.ID, formatTime(appt.AppointmentDateTime), appt.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "время приема ГГГГ-ММ-ДД ЧЧ:ММ")
	cmd.Flags().StringVar(&reason, "reason", "", "причина обращения")
	cmd.Flags().StringVar(&notes, "notes", "", "дополнительные заметки")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func newAppointmentsCmd(a *app) *cobra.Command {
	var past, follow bool

	cmd := &cobra.Command{
		Use:         "appointments",
		Short:       "Мои записи",
		Annotations: routed("/dashboard"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if follow {
				return a.follow(cmd, past)
			}
			if err := a.machine.Fetch(cmd.Context(), false); err != nil {
				return err
			}
			return a.printAppointments(cmd, past)
		},
	}

	cmd.Flags().BoolVar(&past, "past", false, "показать также прошедшие записи")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "следить за изменениями")

	return cmd
}

func (a *app) printAppointments(cmd *cobra.Command, past bool) error {
	out := cmd.OutOrStdout()
	if err := printAppointments(out, "Предстоящие", a.machine.Upcoming()); err != nil {
		return err
	}
	if past {
		return printAppointments(out, "Прошедшие", a.machine.Past())
	}
	return nil
}

// follow subscribes to appointment events, loads the list and prints it
// again on every event until the context ends or the session is closed from
// another process. Events that race the initial load are reconciled by age.
func (a *app) follow(cmd *cobra.Command, past bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events, err := a.client.Subscribe(ctx)
	if err != nil {
		return err
	}
	if err := a.machine.Fetch(ctx, false); err != nil {
		return err
	}
	if err := a.printAppointments(cmd, past); err != nil {
		return err
	}

	loggedOut := make(chan struct{})
	go func() {
		err := a.store.Watch(ctx, func(snap session.Snapshot) {
			if !snap.IsAuthenticated {
				select {
				case <-loggedOut:
				default:
					close(loggedOut)
				}
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("не удалось следить за файлом сессии", zap.Error(err))
		}
	}()

	fmt.Fprintln(cmd.OutOrStdout(), "Ожидание изменений, Ctrl+C для выхода")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-loggedOut:
			fmt.Fprintln(cmd.OutOrStdout(), "Сессия завершена")
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Appointment == nil || !a.machine.Reconcile(*event.Appointment) {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s: запись %s\n", event.Event, event.AppointmentID)
			if err := a.printAppointments(cmd, past); err != nil {
				return err
			}
		}
	}
}

func newCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "cancel <appointmentId>",
		Short:       "Отменить запись",
		Annotations: routed("/dashboard"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.machine.Fetch(cmd.Context(), false); err != nil {
				return err
			}

			appt, err := a.machine.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Запись %s отменена\n", appt.ID)
			return nil
		},
	}
}

func newRescheduleCmd(a *app) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:         "reschedule <appointmentId>",
		Short:       "Перенести запись",
		Annotations: routed("/dashboard"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseDateTime(at)
			if err != nil {
				return err
			}
			if err := a.machine.Fetch(cmd.Context(), false); err != nil {
				return err
			}

			appt, err := a.machine.Reschedule(cmd.Context(), args[0], when)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Запись %s перенесена на %s\n", appt.ID, formatTime(appt.AppointmentDateTime))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "новое время ГГГГ-ММ-ДД ЧЧ:ММ")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "complete <appointmentId>",
		Short:       "Отметить прием как состоявшийся",
		Annotations: routed("/admin/appointments"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.machine.Fetch(cmd.Context(), true); err != nil {
				return err
			}

			appt, err := a.machine.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Запись %s завершена\n", appt.ID)
			return nil
		},
	}
}
