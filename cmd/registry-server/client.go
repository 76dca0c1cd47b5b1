package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ehr/registry/pkg/client"
	"github.com/ehr/registry/pkg/pagination"
)

const defaultServerURL = "http://localhost:3000"

// addServerFlag registers the flags shared by every command that calls a
// running server.
func addServerFlag(cmd *cobra.Command) {
	def := os.Getenv("REGISTRY_URL")
	if def == "" {
		def = defaultServerURL
	}
	cmd.PersistentFlags().String("server", def, "Registry server base URL (env REGISTRY_URL)")
	cmd.PersistentFlags().Duration("timeout", client.DefaultTimeout, "Request timeout")
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	base, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return client.New(base, client.WithTimeout(timeout))
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", pagination.DefaultPage, "Page number")
	cmd.Flags().Int("limit", pagination.DefaultLimit, "Rows per page")
	cmd.Flags().String("search", "", "Case-insensitive substring filter")
}

func pageParams(cmd *cobra.Command) pagination.Params {
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	search, _ := cmd.Flags().GetString("search")
	return pagination.Parse(strconv.Itoa(page), strconv.Itoa(limit), search)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// printPageHint tells the user where the listed page sits in the result set.
func printPageHint[T any](w io.Writer, page *pagination.Page[T]) {
	p := pagination.Params{Page: page.Page, Limit: page.Limit}
	hint := fmt.Sprintf("page %d of %d (%d total)", page.Page, page.TotalPages, page.Total)
	if p.HasPrevious() {
		hint += fmt.Sprintf("; previous: --page %d", p.Page-1)
	}
	if p.HasNext(page.Total) {
		hint += fmt.Sprintf("; next: --page %d", p.Page+1)
	}
	fmt.Fprintln(w, hint)
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Query and register patients on a running server",
	}
	addServerFlag(cmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients, ordered by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			page, err := c.ListPatients(cmd.Context(), pageParams(cmd))
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), page); err != nil {
				return err
			}
			printPageHint(cmd.ErrOrStderr(), page)
			return nil
		},
	}
	addPageFlags(listCmd)
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of registered patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			n, err := c.CountPatients(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in client.NewPatient
			in.Name, _ = cmd.Flags().GetString("name")
			in.MRN, _ = cmd.Flags().GetString("mrn")
			in.Gender, _ = cmd.Flags().GetString("gender")
			in.BirthDate, _ = cmd.Flags().GetString("birth-date")
			if in.Gender != "" && !slices.Contains(client.Genders, in.Gender) {
				return fmt.Errorf("gender must be one of %s", strings.Join(client.Genders, ", "))
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			p, err := c.CreatePatient(cmd.Context(), in)
			if client.IsConflict(err) {
				return fmt.Errorf("MRN %q is already registered", in.MRN)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	createCmd.Flags().String("name", "", "Full name")
	createCmd.Flags().String("mrn", "", "Medical record number")
	createCmd.Flags().String("gender", "", "One of "+strings.Join(client.Genders, ", "))
	createCmd.Flags().String("birth-date", "", "Birth date (YYYY-MM-DD)")
	cmd.AddCommand(createCmd)

	return cmd
}

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Manage a patient's clinical orders on a running server",
	}
	addServerFlag(cmd)

	listCmd := &cobra.Command{
		Use:   "list PATIENT_ID",
		Short: "List a patient's orders, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			page, err := c.ListOrders(cmd.Context(), patientID, pageParams(cmd))
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), page); err != nil {
				return err
			}
			printPageHint(cmd.ErrOrStderr(), page)
			return nil
		},
	}
	addPageFlags(listCmd)
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "create PATIENT_ID MESSAGE",
		Short: "Add an order for a patient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			o, err := c.CreateOrder(cmd.Context(), patientID, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), o)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update ORDER_ID MESSAGE",
		Short: "Replace an order's message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			o, err := c.UpdateOrder(cmd.Context(), id, args[1])
			if client.IsNotFound(err) {
				return fmt.Errorf("order %d not found", id)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), o)
		},
	})

	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
