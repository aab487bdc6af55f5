package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medbook/internal/domain"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Войти в систему",
		Annotations: routed("/login"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MEDBOOK_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("укажите пароль через --password или MEDBOOK_PASSWORD")
			}

			tokens, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Добро пожаловать, %s (%s)\n", tokens.User.Name, tokens.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "пароль")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var req domain.RegisterRequest

	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Зарегистрироваться как пациент",
		Annotations: routed("/register"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("MEDBOOK_PASSWORD")
			}

			profile, err := a.client.Register(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Аккаунт %s создан, теперь выполните medbook login\n", profile.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "имя и фамилия")
	cmd.Flags().StringVar(&req.Email, "email", "", "email")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "телефон")
	cmd.Flags().StringVar(&req.Password, "password", "", "пароль")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Выйти из системы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			a.machine.Reset()
			fmt.Fprintln(cmd.OutOrStdout(), "Сессия завершена")
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var name, phone string

	cmd := &cobra.Command{
		Use:         "profile",
		Short:       "Изменить имя или телефон",
		Annotations: routed("/dashboard"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req domain.UpdateProfileDTO
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("phone") {
				req.Phone = &phone
			}
			if req.Name == nil && req.Phone == nil {
				return fmt.Errorf("%w: укажите --name или --phone", domain.ErrInvalidInput)
			}

			user, err := a.client.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Профиль обновлен: %s", user.Name)
			if user.Phone != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", %s", user.Phone)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "имя и фамилия")
	cmd.Flags().StringVar(&phone, "phone", "", "телефон")

	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Показать текущего пользователя",
		Annotations: routed("/dashboard"),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
			fmt.Fprintf(out, "Роль: %s\n", user.Role)
			if exp := a.store.TokenExpiry(); exp > 0 {
				fmt.Fprintf(out, "Токен действует до: %s\n", formatTime(unixTime(exp)))
			}
			return nil
		},
	}
}
