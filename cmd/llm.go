package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/profilebot/internal/llm"
	"github.com/abhisek/profilebot/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect and test the narrative LLM",
}

const stamp = "2006-01-02 15:04:05"

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent narrative requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := auditStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No LLM requests recorded yet.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, bold("ID\tTIME\tPURPOSE\tMODEL\tTOKENS\tMS\t"))
		for _, e := range events {
			mark := green("ok")
			if !e.Success {
				mark = red("failed")
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
				e.ID, e.Timestamp.Local().Format(stamp), e.Purpose, truncate(e.Model, 32),
				e.InputTokens, e.OutputTokens, e.LatencyMs, mark)
		}
		return tw.Flush()
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Print the prompt and the answer of one request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid request id %q", args[0])
		}

		s, err := auditStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("request %d not found", id)
		}

		fmt.Printf("%s #%d  %s\n", bold(e.Purpose), e.ID, gray(e.Timestamp.Local().Format(stamp)))
		fmt.Printf("%s %s, %d in / %d out tokens, %d ms\n", e.Provider, e.Model, e.InputTokens, e.OutputTokens, e.LatencyMs)
		if e.ErrorMessage != "" {
			fmt.Println(red(e.ErrorMessage))
		}
		printBlock("prompt", e.RequestBody)
		printBlock("answer", e.ResponseBody)
		return nil
	},
}

func printBlock(title, body string) {
	fmt.Printf("\n%s\n", bold("── "+title+" "+strings.Repeat("─", 50)))
	if body == "" {
		fmt.Println(gray("(empty)"))
		return
	}
	fmt.Println(strings.TrimRight(body, "\n"))
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show failure rate, token usage and estimated cost per narrative",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := auditStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println("No LLM requests recorded yet.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "PURPOSE\tCALLS\tFAILED\tIN\tOUT\tAVG MS\t")
		for _, u := range byPurpose {
			failed := strconv.Itoa(u.Failed)
			if u.Failed > 0 {
				failed = red(fmt.Sprintf("%d (%.0f%%)", u.Failed, 100*float64(u.Failed)/float64(u.Calls)))
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t\n",
				u.Purpose, u.Calls, failed, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		fmt.Println()
		tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "MODEL\tCALLS\tIN\tOUT\tUSD\t")
		var total float64
		var unpriced []string
		for _, u := range byModel {
			usd := "?"
			if c := llm.LookupCost(u.Model); c != nil {
				v := c.Cost(u.InputTokens, u.OutputTokens)
				total += v
				usd = formatCost(v)
			} else {
				unpriced = append(unpriced, u.Model)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t\n", truncate(u.Model, 40), u.Calls, u.InputTokens, u.OutputTokens, usd)
		}
		fmt.Fprintf(tw, "%s\t\t\t\t%s\t\n", bold("total"), formatCost(total))
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(unpriced) > 0 {
			fmt.Println(gray("no price for " + strings.Join(unpriced, ", ") + "; total is partial"))
		}
		return nil
	},
}

var llmCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Send one short request to the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		pcfg, err := cfg.LLMProviderConfig()
		if err != nil {
			return err
		}
		p, err := llm.NewProvider(cmd.Context(), pcfg, s.EventRepo())
		if err != nil {
			return err
		}

		ctx := llm.WithPurpose(cmd.Context(), "check")
		start := time.Now()
		text, err := llm.NewCompleter(p, 64).Complete(ctx,
			"Ты проверяешь доступность сервиса. Отвечай одним словом.",
			"Ответь словом «готов».", cfg.LLM.Timeout)
		if err != nil {
			fmt.Printf("%s %s %s: %v\n", red("✗"), pcfg.Provider, p.ModelID(), err)
			return err
		}
		fmt.Printf("%s %s %s answered %q in %s\n", green("✓"), pcfg.Provider, p.ModelID(), text,
			time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only this purpose, e.g. narrative-disc")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd, llmCheckCmd)
}

// auditStore opens the audit database for the inspection commands.
func auditStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}
