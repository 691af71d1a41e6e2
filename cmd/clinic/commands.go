package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinic/internal/domain/medication"
	"github.com/clinicdesk/clinic/internal/domain/patient"
	"github.com/clinicdesk/clinic/internal/domain/scheduling"
	"github.com/clinicdesk/clinic/internal/importer"
	"github.com/clinicdesk/clinic/internal/platform/format"
	"github.com/clinicdesk/clinic/pkg/pagination"
)

// parseMappings turns repeated field=Header flags into a mapping. Headers
// may contain '=' and spaces; only the first '=' splits.
func parseMappings(values []string) (importer.Mapping, error) {
	m := make(importer.Mapping, len(values))
	for _, v := range values {
		field, header, ok := strings.Cut(v, "=")
		field = strings.TrimSpace(field)
		header = strings.TrimSpace(header)
		if !ok || field == "" || header == "" {
			return nil, fmt.Errorf("invalid --map %q, want field=Header", v)
		}
		if _, dup := m[field]; dup {
			return nil, fmt.Errorf("field %s mapped twice", field)
		}
		m[field] = header
	}
	return m, nil
}

func formatMapping(m importer.Mapping) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) string { return fmt.Sprintf("%s <- %q", k, m[k]) })
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from a CSV or Excel file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kindName, _ := cmd.Flags().GetString("kind")
			file, _ := cmd.Flags().GetString("file")
			maps, _ := cmd.Flags().GetStringArray("map")
			enc, _ := cmd.Flags().GetString("encoding")
			noSkip, _ := cmd.Flags().GetBool("no-skip-duplicates")
			createTypes, _ := cmd.Flags().GetBool("create-test-types")

			kind, err := importer.ParseKind(kindName)
			if err != nil {
				return err
			}
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			opts := importer.DefaultOptions(kind)
			opts.Encoding = enc
			if noSkip {
				opts.SkipDuplicates = false
			}
			opts.CreateMissingTestTypes = createTypes

			mapping, err := parseMappings(maps)
			if err != nil {
				return err
			}
			if len(mapping) == 0 {
				headers, err := importer.ReadHeaders(file, enc)
				if err != nil {
					return err
				}
				mapping = importer.AutoMap(kind, headers)
				fmt.Println("Column mapping (auto):")
				for _, line := range formatMapping(mapping) {
					fmt.Println("  " + line)
				}
			}
			if missing := mapping.MissingRequired(kind); len(missing) > 0 {
				return fmt.Errorf("required fields not mapped: %s", strings.Join(missing, ", "))
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				rep := a.importer.Import(ctx, file, kind, mapping, opts)
				fmt.Println(rep.Summary(a.cfg.ImportErrorPreview))
				if !rep.Success {
					return fmt.Errorf("import of %s rejected", file)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("kind", "", "Record kind: patient, medicine, test_type, visit, test_result")
	cmd.Flags().String("file", "", "Path to a .csv, .xlsx or .xls file")
	cmd.Flags().StringArray("map", nil, "Column mapping field=Header (repeatable; auto-detected when omitted)")
	cmd.Flags().String("encoding", "", "CSV encoding: utf-8, windows-1258, windows-1252, iso-8859-1")
	cmd.Flags().Bool("no-skip-duplicates", false, "Report duplicates as row errors instead of skipping them")
	cmd.Flags().Bool("create-test-types", false, "Create unknown test types when importing test results")

	cmd.AddCommand(importColumnsCmd())
	cmd.AddCommand(importPreviewCmd())
	return cmd
}

func importColumnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the importable fields of a kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			kindName, _ := cmd.Flags().GetString("kind")
			kind, err := importer.ParseKind(kindName)
			if err != nil {
				return err
			}
			fmt.Printf("%-18s %-24s %s\n", "FIELD", "LABEL", "REQUIRED")
			for _, f := range importer.Fields(kind) {
				req := ""
				if f.Required {
					req = "*"
				}
				fmt.Printf("%-18s %-24s %s\n", f.Key, f.Label, req)
			}
			return nil
		},
	}
	cmd.Flags().String("kind", "", "Record kind")
	return cmd
}

func importPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the first rows of a file and the suggested mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			enc, _ := cmd.Flags().GetString("encoding")
			rows, _ := cmd.Flags().GetInt("rows")
			kindName, _ := cmd.Flags().GetString("kind")

			info, err := importer.Inspect(file, enc)
			if err != nil {
				return err
			}
			table, err := importer.Preview(file, enc, rows)
			if err != nil {
				return err
			}
			fmt.Printf("%d data row(s), %d column(s)\n\n", info.Rows, info.Columns)
			fmt.Println(strings.Join(table.Headers, " | "))
			for _, r := range table.Rows {
				cells := lo.Map(table.Headers, func(_ string, i int) string { return format.Truncate(r.Value(i), 30) })
				fmt.Println(strings.Join(cells, " | "))
			}

			if kindName == "" {
				return nil
			}
			kind, err := importer.ParseKind(kindName)
			if err != nil {
				return err
			}
			mapping := importer.AutoMap(kind, table.Headers)
			fmt.Println("\nSuggested mapping:")
			for _, line := range formatMapping(mapping) {
				fmt.Println("  " + line)
			}
			if missing := mapping.MissingRequired(kind); len(missing) > 0 {
				fmt.Printf("Unmapped required fields: %s\n", strings.Join(missing, ", "))
			}
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to a .csv, .xlsx or .xls file")
	cmd.Flags().String("encoding", "", "CSV encoding")
	cmd.Flags().Int("rows", 5, "Number of data rows to show")
	cmd.Flags().String("kind", "", "Suggest a mapping for this kind")
	return cmd
}

func appointmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "Manage follow-up appointments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scan-overdue",
		Short: "Mark past PENDING appointments as OVERDUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				promoted, err := a.appointments.ScanAndPromoteOverdue(ctx, format.DateOnly(time.Now()))
				if err != nil {
					return err
				}
				fmt.Printf("%d appointment(s) marked overdue\n", len(promoted))
				printAppointments(a, promoted)
				return nil
			})
		},
	})

	upcoming := &cobra.Command{
		Use:   "upcoming",
		Short: "List open appointments in the coming days",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.appointments.Upcoming(ctx, format.DateOnly(time.Now()), days)
				if err != nil {
					return err
				}
				printAppointments(a, list)
				return nil
			})
		},
	}
	upcoming.Flags().Int("days", scheduling.DefaultUpcomingDays, "Look-ahead window in days")
	cmd.AddCommand(upcoming)

	add := &cobra.Command{
		Use:   "add",
		Short: "Schedule an appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("patient")
			date, _ := cmd.Flags().GetString("date")
			reason, _ := cmd.Flags().GetString("reason")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				day, ok := format.ParseDate(date, a.cfg.DateFormat)
				if !ok {
					return fmt.Errorf("date %q does not match %s", date, a.cfg.DateFormat)
				}
				p, err := a.patients.GetPatientByCode(ctx, code)
				if err != nil {
					return err
				}
				appt := &scheduling.Appointment{PatientID: p.ID, AppointmentDate: day, Reason: format.Optional(reason)}
				if err := a.appointments.CreateAppointment(ctx, appt); err != nil {
					return err
				}
				fmt.Printf("Appointment %d scheduled for %s on %s\n", appt.ID, appt.PatientName, format.FormatDate(day, a.cfg.DateFormat))
				return nil
			})
		},
	}
	add.Flags().String("patient", "", "Patient code")
	add.Flags().String("date", "", "Appointment date")
	add.Flags().String("reason", "", "Reason for the visit")
	cmd.AddCommand(add)

	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an appointment completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid appointment id %q", args[0])
			}
			visitID, _ := cmd.Flags().GetInt64("visit")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var vid *int64
				if visitID > 0 {
					vid = &visitID
				}
				appt, err := a.appointments.MarkCompleted(ctx, id, vid)
				if err != nil {
					return err
				}
				fmt.Printf("Appointment %d is %s\n", appt.ID, appt.Status)
				return nil
			})
		},
	}
	complete.Flags().Int64("visit", 0, "Visit that fulfilled the appointment")
	cmd.AddCommand(complete)

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid appointment id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				appt, err := a.appointments.MarkCancelled(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("Appointment %d is %s\n", appt.ID, appt.Status)
				return nil
			})
		},
	})

	return cmd
}

func printAppointments(a *app, list []*scheduling.Appointment) {
	if len(list) == 0 {
		return
	}
	fmt.Printf("%-6s %-12s %-10s %-28s %s\n", "ID", "DATE", "STATUS", "PATIENT", "REASON")
	for _, appt := range list {
		reason := ""
		if appt.Reason != nil {
			reason = *appt.Reason
		}
		fmt.Printf("%-6d %-12s %-10s %-28s %s\n", appt.ID,
			format.FormatDate(appt.AppointmentDate, a.cfg.DateFormat), appt.Status,
			format.Truncate(appt.PatientName, 28), format.Truncate(reason, 40))
	}
}

// pageFooter describes where a page sits and how to reach its neighbours.
func pageFooter(p pagination.Params, total, shown int) string {
	if shown == 0 {
		return fmt.Sprintf("No patients at offset %d (%d total).", p.Offset, total)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d-%d of %d.", p.Offset+1, p.Offset+shown, total)
	if p.HasPrevious() {
		fmt.Fprintf(&b, " Previous: --offset %d.", p.PreviousOffset())
	}
	if p.HasNext(total) {
		fmt.Fprintf(&b, " Next: --offset %d.", p.NextOffset())
	}
	return b.String()
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Look up patients",
	}

	search := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search patients by name, phone or code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.patients.SearchPatients(ctx, keyword, limit)
				if err != nil {
					return err
				}
				printPatients(a, list)
				return nil
			})
		},
	}
	search.Flags().Int("limit", 50, "Maximum number of patients to show")
	cmd.AddCommand(search)

	list := &cobra.Command{
		Use:   "list",
		Short: "List patients newest first, one page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			params := pagination.New(limit, offset)
			return withApp(cmd, func(ctx context.Context, a *app) error {
				page, err := a.patients.ListPatients(ctx, params)
				if err != nil {
					return err
				}
				printPatients(a, page.Items)
				fmt.Println(pageFooter(params, page.Total, len(page.Items)))
				return nil
			})
		},
	}
	list.Flags().Int("limit", pagination.DefaultLimit, "Patients per page")
	list.Flags().Int("offset", 0, "Number of patients to skip")
	cmd.AddCommand(list)

	add := &cobra.Command{
		Use:   "add",
		Short: "Register a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("code")
			name, _ := cmd.Flags().GetString("name")
			dob, _ := cmd.Flags().GetString("dob")
			gender, _ := cmd.Flags().GetString("gender")
			phone, _ := cmd.Flags().GetString("phone")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var err error
				if code == "" {
					if code, err = a.patients.GeneratePatientCode(ctx); err != nil {
						return err
					}
				}
				p := &patient.Patient{
					PatientCode: code,
					FullName:    name,
					Gender:      format.Optional(gender),
					PhoneNumber: format.Optional(phone),
				}
				if dob != "" {
					d, ok := format.ParseDate(dob, a.cfg.DateFormat)
					if !ok {
						return fmt.Errorf("date of birth %q does not match %s", dob, a.cfg.DateFormat)
					}
					p.DateOfBirth = &d
				}
				if err := a.patients.CreatePatient(ctx, p); err != nil {
					return err
				}
				fmt.Printf("Patient %s registered (id %d)\n", p.PatientCode, p.ID)
				return nil
			})
		},
	}
	add.Flags().String("code", "", "Patient code (generated when omitted)")
	add.Flags().String("name", "", "Full name")
	add.Flags().String("dob", "", "Date of birth")
	add.Flags().String("gender", "", "Gender")
	add.Flags().String("phone", "", "Phone number")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <code>",
		Short: "Show a patient's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return showPatient(ctx, a, args[0])
			})
		},
	})

	return cmd
}

func printPatients(a *app, list []*patient.Patient) {
	fmt.Printf("%-10s %-28s %-12s %-4s %s\n", "CODE", "NAME", "DOB", "AGE", "PHONE")
	today := time.Now()
	for _, p := range list {
		age := ""
		if n, ok := p.Age(today); ok {
			age = strconv.Itoa(n)
		}
		phone := ""
		if p.PhoneNumber != nil {
			phone = format.FormatPhone(*p.PhoneNumber)
		}
		fmt.Printf("%-10s %-28s %-12s %-4s %s\n", p.PatientCode, format.Truncate(p.FullName, 28),
			format.FormatDatePtr(p.DateOfBirth, a.cfg.DateFormat), age, phone)
	}
}

func showPatient(ctx context.Context, a *app, code string) error {
	p, err := a.patients.GetPatientByCode(ctx, code)
	if err != nil {
		return err
	}
	printPatients(a, []*patient.Patient{p})

	visits, err := a.visits.ListPatientVisits(ctx, p.ID, 10)
	if err != nil {
		return err
	}
	fmt.Printf("\nVisits (%d most recent):\n", len(visits))
	for _, v := range visits {
		diagnosis := ""
		if v.Diagnosis != nil {
			diagnosis = *v.Diagnosis
		}
		fmt.Printf("  %s  %s\n", format.FormatDate(v.VisitDate, a.cfg.DateFormat), format.Truncate(diagnosis, 60))
	}

	latest, err := a.lab.LatestResults(ctx, p.ID)
	if err != nil {
		return err
	}
	fmt.Println("\nLatest test results:")
	for _, r := range latest {
		value := format.FormatNumber(r.Value, 2)
		if value == "" && r.Text != nil {
			value = *r.Text
		}
		unit := ""
		if r.Unit != nil {
			unit = *r.Unit
		}
		fmt.Printf("  %-24s %-12s %s %s (%s)\n", r.TestName, format.FormatDate(r.Date, a.cfg.DateFormat), value, unit, r.Status)
	}

	rx, err := a.medication.ListPatientPrescriptions(ctx, p.ID, medication.DefaultHistoryLimit)
	if err != nil {
		return err
	}
	fmt.Println("\nPrescriptions:")
	for _, pr := range rx {
		dosage := ""
		if pr.Dosage != nil {
			dosage = *pr.Dosage
		}
		fmt.Printf("  %s  %-28s %s\n", format.FormatDate(pr.VisitDate, a.cfg.DateFormat), pr.MedicineName, dosage)
	}

	appts, err := a.appointments.ListPatientAppointments(ctx, p.ID, false)
	if err != nil {
		return err
	}
	if len(appts) > 0 {
		fmt.Println("\nOpen appointments:")
		printAppointments(a, appts)
	}
	return nil
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show clinic totals and appointment alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sum, err := a.dashboard.Summary(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Printf("Dashboard for %s\n\n", format.FormatDate(sum.Today, a.cfg.DateFormat))
				fmt.Printf("Patients:      %d\n", sum.TotalPatients)
				fmt.Printf("Visits:        %d\n", sum.TotalVisits)
				fmt.Printf("Visits today:  %d\n", sum.VisitsToday)
				fmt.Printf("Overdue:       %d\n", sum.Overdue)
				if sum.HasAlerts() {
					fmt.Printf("\n! %s\n", sum.Alert())
				}
				if len(sum.Upcoming) > 0 {
					fmt.Println("\nUpcoming appointments:")
					printAppointments(a, sum.Upcoming)
				}
				return nil
			})
		},
	}
}
