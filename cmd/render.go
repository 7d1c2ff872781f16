package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/profilebot/internal/bot"
	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/report"
	"github.com/abhisek/profilebot/internal/session"
	"github.com/abhisek/profilebot/internal/synth"
)

// answerSet is a recorded questionnaire run, as read by render.
type answerSet struct {
	UserID  string              `json:"user_id"`
	Name    string              `json:"name"`
	Answers map[string][]string `json:"answers"`
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render both report PDFs offline from a recorded answer set",
	Long: `Render replays an answer file through the questionnaire and writes the
short and full PDFs without uploading them. The file looks like:

  {"name": "Анна", "answers": {"PAEI": ["E", ...], "SOFT": ["3", ...], "HEXACO": [...], "DISC": [...]}}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("answers")
		out, _ := cmd.Flags().GetString("out")
		useLLM, _ := cmd.Flags().GetBool("llm")

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var set answerSet
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		svc, err := buildServices(ctx, cfg, buildOpts{offline: true, noLLM: !useLLM, scratch: out})
		if err != nil {
			return err
		}
		defer svc.Close()

		s, err := replay(svc.machine, set)
		if err != nil {
			return err
		}
		narratives, err := svc.synth.Synthesise(ctx, synth.Input{Scores: s.Scores})
		if err != nil {
			return err
		}
		arts, err := svc.composer.Compose(ctx, bot.ReportInput(svc.machine, s, narratives))
		if err != nil {
			return err
		}

		for _, doc := range []report.Document{arts.Short, arts.Full} {
			abs, _ := filepath.Abs(doc.Path)
			fmt.Printf("%-5s %2d pages  %s\n", doc.Variant, doc.Pages, abs)
		}
		return nil
	},
}

// replay feeds a recorded answer set through the state machine and returns
// the completed session.
func replay(m *session.Machine, set answerSet) (*session.Session, error) {
	if set.Name == "" {
		return nil, errors.New("answer set has no name")
	}
	userID := set.UserID
	if userID == "" {
		userID = "render"
	}

	s := m.New(userID)
	s, _, _ = m.Handle(s, set.Name)
	for _, inst := range instrument.Battery {
		answers := set.Answers[string(inst)]
		if len(answers) != m.Bank.Count(inst) {
			return nil, fmt.Errorf("%s: %d answers for %d items", inst, len(answers), m.Bank.Count(inst))
		}
		for i, a := range answers {
			before := len(s.Responses)
			var eff session.Effect
			var reply session.Reply
			s, reply, eff = m.Handle(s, a)
			if eff == session.EffectAborted {
				return nil, fmt.Errorf("%s answer %d: %s", inst, i+1, reply.Text)
			}
			if len(s.Responses) == before {
				return nil, fmt.Errorf("%s answer %d: %q is not accepted", inst, i+1, a)
			}
		}
	}
	if s.Stage != session.StageCompleted {
		return nil, fmt.Errorf("answer set ends in stage %s", s.Stage)
	}
	return s, nil
}

func init() {
	renderCmd.Flags().String("answers", "", "JSON answer set to render")
	renderCmd.Flags().String("out", ".", "Directory the PDFs are written under")
	renderCmd.Flags().Bool("llm", false, "Write narratives with the configured LLM instead of the templates")
	_ = renderCmd.MarkFlagRequired("answers")
}
