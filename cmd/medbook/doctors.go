package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"medbook/internal/client/api"
)

func newDoctorsCmd(a *app) *cobra.Command {
	var q api.DoctorQuery

	cmd := &cobra.Command{
		Use:         "doctors",
		Short:       "Список врачей",
		Annotations: routed("/doctors"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doctors, page, err := a.client.Doctors(cmd.Context(), q)
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tВРАЧ\tСПЕЦИАЛИЗАЦИЯ\tСТАЖ")
			for _, d := range doctors {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Specialization, d.Experience)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), page)
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Specialization, "specialization", "", "специализация")
	cmd.Flags().StringVar(&q.Search, "search", "", "поиск по имени")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "количество на странице")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "смещение")

	return cmd
}

func newSpecializationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "specializations",
		Short:       "Список специализаций",
		Annotations: routed("/doctors"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := a.client.Specializations(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range specs {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newSlotsCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:         "slots <doctorId>",
		Short:       "Свободное время врача на дату",
		Annotations: routed("/booking/:doctorId"),
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = time.Now().Format(dateLayout)
			}

			slots, err := a.client.AvailableSlots(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}

			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Свободного времени нет")
				return nil
			}
			for _, s := range slots {
				fmt.Fprintln(cmd.OutOrStdout(), formatTime(s))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "дата ГГГГ-ММ-ДД (по умолчанию сегодня)")

	return cmd
}
