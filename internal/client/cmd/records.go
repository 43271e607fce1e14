package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"medequip/internal/client/mutation"
	"medequip/internal/client/resync"
	"medequip/internal/shared/apperr"
	"medequip/internal/shared/models"
)

// reportedError marks failures the notification channel already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported is true for errors whose message the user has already seen.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

func surfaced(err error) error {
	if err == nil {
		return nil
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindTransport, apperr.KindAuthentication:
		return reportedError{err}
	}
	return err
}

const dateLayout = "2006-01-02 15:04"

func newSyncCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reload every collection and show a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd)
			if err != nil {
				return err
			}
			snap := ws.Sync.Snapshot()
			type summary struct {
				Equipment     int       `json:"equipamentos"`
				Maintenance   int       `json:"manutencoes"`
				Notifications int       `json:"notificacoes"`
				Stale         []string  `json:"stale"`
				LoadedAt      time.Time `json:"loaded_at"`
			}
			sum := summary{
				Equipment:     len(snap.Equipment),
				Maintenance:   len(snap.Maintenance),
				Notifications: len(snap.Notifications),
				Stale:         staleNames(snap),
				LoadedAt:      snap.LoadedAt,
			}
			return render(env.out, env.format, sum, func(tw *tabwriter.Writer) {
				row(tw, "RESOURCE", "COUNT", "STATE")
				for _, r := range resync.Resources {
					state := "fresh"
					if _, bad := snap.Stale[r]; bad {
						state = "stale"
					}
					count := "-"
					switch r {
					case resync.ResourceEquipment:
						count = fmt.Sprint(sum.Equipment)
					case resync.ResourceMaintenance:
						count = fmt.Sprint(sum.Maintenance)
					case resync.ResourceNotifications:
						count = fmt.Sprint(sum.Notifications)
					}
					row(tw, r, count, state)
				}
			})
		},
	}
}

func staleNames(snap resync.Snapshot) []string {
	out := make([]string, 0, len(snap.Stale))
	for r := range snap.Stale {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

func newEquipmentCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "equipment", Aliases: []string{"equipamentos"}, Short: "List or register equipment"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd)
			if err != nil {
				return err
			}
			list := ws.Sync.Equipment()
			return render(env.out, env.format, list, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "MODEL", "MANUFACTURER", "SERIAL", "LOCATION", "STATUS")
				for _, e := range list {
					status := "operational"
					if !e.Operational() {
						status = e.Status
					}
					row(tw, e.ID, e.Name, e.Model, e.Manufacturer, e.SerialNumber, e.Location, status)
				}
			})
		},
	})

	var draft mutation.EquipmentDraft
	add := &cobra.Command{
		Use:   "add",
		Short: "Register equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd)
			if err != nil {
				return err
			}
			ws.Mutations.OpenEquipmentForm()
			ws.Mutations.Equipment.Update(func(d *mutation.EquipmentDraft) {
				status := d.Status
				*d = draft
				if d.Status == "" {
					d.Status = status
				}
			})
			created, err := ws.Mutations.SubmitEquipment(cmd.Context())
			if err != nil {
				return surfaced(err)
			}
			if env.format != formatTable {
				return render(env.out, env.format, created, nil)
			}
			fmt.Fprintln(env.out, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&draft.Name, "name", "", "Name (nome)")
	add.Flags().StringVar(&draft.Model, "model", "", "Model (modelo)")
	add.Flags().StringVar(&draft.Manufacturer, "manufacturer", "", "Manufacturer (fabricante)")
	add.Flags().StringVar(&draft.SerialNumber, "serial", "", "Serial number (numero_serie)")
	add.Flags().StringVar(&draft.Location, "location", "", "Location (localizacao)")
	add.Flags().StringVar(&draft.Status, "status", "", "Status (default operacional)")
	cmd.AddCommand(add)
	return cmd
}

func newMaintenanceCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "maintenance", Aliases: []string{"manutencoes"}, Short: "List or schedule maintenance"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List maintenance records",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd)
			if err != nil {
				return err
			}
			snap := ws.Sync.Snapshot()
			names := make(map[string]string, len(snap.Equipment))
			for _, e := range snap.Equipment {
				names[e.ID] = e.Name
			}
			return render(env.out, env.format, snap.Maintenance, func(tw *tabwriter.Writer) {
				row(tw, "ID", "EQUIPMENT", "TYPE", "SCHEDULED", "STATUS", "DESCRIPTION")
				for _, m := range snap.Maintenance {
					eq := names[m.EquipmentID]
					if eq == "" {
						eq = m.EquipmentID
					}
					row(tw, m.ID, eq, m.Type, m.ScheduledDate.Local().Format(dateLayout), m.Status, m.Description)
				}
			})
		},
	})

	var (
		draft  mutation.MaintenanceDraft
		typ    string
		status string
	)
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule maintenance for an equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd)
			if err != nil {
				return err
			}
			if err := ws.Mutations.OpenMaintenanceForm(); err != nil {
				return surfaced(err)
			}
			ws.Mutations.Maintenance.Update(func(d *mutation.MaintenanceDraft) {
				d.EquipmentID = draft.EquipmentID
				d.Description = draft.Description
				d.ScheduledDate = draft.ScheduledDate
				if typ != "" {
					d.Type = models.MaintenanceType(strings.ToLower(typ))
				}
				if status != "" {
					d.Status = models.MaintenanceStatus(strings.ToLower(status))
				}
			})
			created, err := ws.Mutations.SubmitMaintenance(cmd.Context())
			if err != nil {
				return surfaced(err)
			}
			if env.format != formatTable {
				return render(env.out, env.format, created, nil)
			}
			fmt.Fprintln(env.out, created.ID)
			return nil
		},
	}
	schedule.Flags().StringVar(&draft.EquipmentID, "equipment", "", "Equipment ID (equipamento_id)")
	schedule.Flags().StringVar(&typ, "type", "", "preventiva or corretiva (default preventiva)")
	schedule.Flags().StringVar(&draft.Description, "description", "", "Description (descricao)")
	schedule.Flags().StringVar(&draft.ScheduledDate, "date", "", "Due date: YYYY-MM-DD, DD/MM/YYYY or RFC 3339")
	schedule.Flags().StringVar(&status, "status", "", "pendente or concluida (default pendente)")
	cmd.AddCommand(schedule)
	return cmd
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "report",
		Aliases: []string{"relatorios"},
		Short:   "Show the backend report",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd)
			if err != nil {
				return err
			}
			r := ws.Sync.Snapshot().Report
			if r == nil {
				return errors.New("report unavailable")
			}
			return render(env.out, env.format, r, func(tw *tabwriter.Writer) {
				row(tw, "Equipment", r.EquipmentTotal())
				row(tw, "Maintenance", r.MaintenanceTotal())
				row(tw, "  pending", r.MaintenancePending())
				row(tw, "  completed", r.Maintenance.Completed)
				row(tw, "Generated", r.GeneratedAt.Local().Format(dateLayout)+" by "+r.GeneratedBy)
			})
		},
	}
}

func newNotificationsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notificacoes"},
		Short:   "Show overdue and upcoming maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd)
			if err != nil {
				return err
			}
			list := ws.Sync.Snapshot().Notifications
			return render(env.out, env.format, list, func(tw *tabwriter.Writer) {
				row(tw, "PRIORITY", "DATE", "TITLE", "MESSAGE")
				for _, n := range list {
					prio := "normal"
					if n.Priority == models.PriorityHigh {
						prio = "HIGH"
					}
					row(tw, prio, n.Date.Local().Format(dateLayout), n.Title, n.Message)
				}
			})
		},
	}
}
