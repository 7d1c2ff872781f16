package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/profilebot/internal/store"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect the report archive log",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently published reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		user, _ := cmd.Flags().GetString("user")

		s, err := auditStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		recs, err := s.ReportRepo().QueryReports(cmd.Context(), store.QueryOpts{Limit: limit, UserID: user})
		if err != nil {
			return fmt.Errorf("query reports: %w", err)
		}
		if len(recs) == 0 {
			fmt.Println("No reports recorded yet.")
			return nil
		}

		fmt.Printf("%-19s  %-20s  %-5s  %-8s  %s\n", "Timestamp", "User", "Kind", "Status", "Location")
		fmt.Println(strings.Repeat("─", 100))
		for _, r := range recs {
			where := r.URL
			if where == "" {
				where = r.LocalPath
			}
			status := r.Status
			switch r.Status {
			case store.ReportFailed:
				status = red(status)
			case store.ReportUploaded:
				status = green(status)
			}
			fmt.Printf("%-19s  %-20s  %-5s  %-8s  %s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(r.UserID, 20),
				r.Variant,
				status,
				where,
			)
			if r.ErrorMessage != "" {
				fmt.Printf("%s\n", gray("  "+r.ErrorMessage))
			}
		}
		return nil
	},
}

func init() {
	reportsListCmd.Flags().IntP("limit", "n", 20, "Number of reports to show")
	reportsListCmd.Flags().StringP("user", "u", "", "Only reports of this user id")

	reportsCmd.AddCommand(reportsListCmd)
}
