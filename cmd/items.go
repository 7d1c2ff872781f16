package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Inspect the questionnaire item bank",
}

var itemsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse and validate the item bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := bankFor(cmd)
		if err != nil {
			var le *itembank.AssetLoadError
			if errors.As(err, &le) {
				fmt.Printf("%s %s\n", red("✗"), le.Error())
			}
			return err
		}

		for _, inst := range instrument.Battery {
			fmt.Printf("%s %-7s %3d items  %s\n",
				green("✓"), bold(inst), bank.Count(inst), gray(scaleList(bank.Scales(inst))))
		}
		fmt.Printf("\n%d items in total\n", bank.Total())
		return nil
	},
}

var itemsListCmd = &cobra.Command{
	Use:   "list <instrument>",
	Short: "List the items of one instrument",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := instrument.Parse(args[0])
		if err != nil {
			return err
		}
		bank, err := bankFor(cmd)
		if err != nil {
			return err
		}

		for i, it := range bank.ItemsFor(inst) {
			fmt.Printf("%s %s\n", bold(fmt.Sprintf("%2d. %s", i+1, it.ID)), it.Text)
			var meta []string
			if it.Scale != "" {
				meta = append(meta, "scale "+string(it.Scale))
			}
			meta = append(meta, string(it.Kind))
			if it.Reverse {
				meta = append(meta, "reverse")
			}
			fmt.Printf("    %s\n", gray(strings.Join(meta, ", ")))
			for _, c := range it.Choices {
				fmt.Printf("    %s: %s\n", c.Token, c.Label)
			}
		}
		return nil
	},
}

// bankFor loads the item bank from --dir, the configured assets dir, or the
// embedded assets.
func bankFor(cmd *cobra.Command) (*itembank.Bank, error) {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return itembank.LoadFS(os.DirFS(dir), itembank.DefaultRules())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return loadBank(cfg)
}

func scaleList(scales []instrument.Scale) string {
	names := make([]string, len(scales))
	for i, s := range scales {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func init() {
	itemsCmd.PersistentFlags().String("dir", "", "Load assets from this directory instead of the embedded bank")

	itemsCmd.AddCommand(itemsCheckCmd)
	itemsCmd.AddCommand(itemsListCmd)
}
