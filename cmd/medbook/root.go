package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/client/api"
	"medbook/internal/client/booking"
	"medbook/internal/client/guard"
	"medbook/internal/client/session"
	"medbook/pkg/logger"
)

const routeAnnotation = "route"

type app struct {
	cfg     *config.ClientConfig
	logger  *zap.Logger
	store   *session.Store
	client  *api.Client
	machine *booking.Machine
}

var errGuard = errors.New("маршрут недоступен")

type guardError struct {
	target string
}

func (e *guardError) Error() string {
	if e.target == guard.LoginRoute {
		return "требуется вход: выполните medbook login"
	}
	return "недостаточно прав для этой команды"
}

func (e *guardError) Unwrap() error {
	return errGuard
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var apiURL, sessionDir string

	root := &cobra.Command{
		Use:           "medbook",
		Short:         "Запись к врачу из командной строки",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(apiURL, sessionDir); err != nil {
				return err
			}
			return a.guard(cmd, args)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&apiURL, "api", "", "адрес API (по умолчанию MEDBOOK_API_URL)")
	root.PersistentFlags().StringVar(&sessionDir, "session-dir", "", "каталог сессии (по умолчанию MEDBOOK_SESSION_DIR)")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newDoctorsCmd(a),
		newSpecializationsCmd(a),
		newSlotsCmd(a),
		newBookCmd(a),
		newAppointmentsCmd(a),
		newCancelCmd(a),
		newRescheduleCmd(a),
		newCompleteCmd(a),
		newAdminCmd(a),
	)

	return root
}

func (a *app) init(apiURL, sessionDir string) error {
	cfg, err := config.NewClientConfig()
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if sessionDir != "" {
		cfg.SessionDir = sessionDir
	}

	log, err := logger.NewClientLogger()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = log
	a.store = session.NewStore(session.NewFilePersister(cfg.SessionDir), log)
	if err := a.store.Restore(); err != nil {
		log.Warn("не удалось прочитать сохраненную сессию", zap.Error(err))
	}
	a.client = api.NewClient(cfg.APIURL, a.store, log, api.WithHTTPClient(newHTTPClient(cfg.Timeout)))
	a.machine = booking.NewMachine(a.client, log)
	return nil
}

// guard resolves the command's route against the session before it runs.
func (a *app) guard(cmd *cobra.Command, args []string) error {
	route, ok := cmd.Annotations[routeAnnotation]
	if !ok {
		return nil
	}
	if strings.Contains(route, ":doctorId") && len(args) > 0 {
		route = strings.Replace(route, ":doctorId", args[0], 1)
	}

	target, allowed := guard.Resolve(a.store.Snapshot(), route)
	if !allowed {
		a.logger.Debug("команда недоступна", zap.String("route", route), zap.String("target", target))
		return &guardError{target: target}
	}
	return nil
}

func routed(route string) map[string]string {
	return map[string]string{routeAnnotation: route}
}

func describeError(err error) string {
	var redirect *api.RedirectError
	if errors.As(err, &redirect) {
		return fmt.Sprintf("%s (medbook login)", redirect.Error())
	}
	return err.Error()
}
