// Package synth turns instrument scores into narrative blocks. Every block
// is produced by the LLM when one is configured and reachable, otherwise by a
// deterministic template over the band lookup.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/llm"
	"github.com/abhisek/profilebot/internal/logging"
)

// DefaultTimeout bounds a single LLM completion.
const DefaultTimeout = 30 * time.Second

// Input carries everything a synthesis run needs.
type Input struct {
	Scores map[instrument.Instrument]instrument.Scores
	// DialogContext is optional free text appended to every user prompt.
	DialogContext string
}

// Narratives maps each section to its markdown block.
type Narratives map[Section]string

// Options configures a Synthesiser.
type Options struct {
	// Completer is nil when the LLM is disabled.
	Completer llm.Completer
	Timeout   time.Duration
	// OnFallback, when set, is called once per block that used the template.
	OnFallback func(section Section, cause error)
}

// Synthesiser produces narrative blocks. It is safe for concurrent use.
type Synthesiser struct {
	completer  llm.Completer
	timeout    time.Duration
	onFallback func(Section, error)
	bands      *Bands
	prompts    map[Section]string
	log        *slog.Logger
}

// New loads the embedded prompts and band tables.
func New(opts Options) (*Synthesiser, error) {
	bands, err := LoadBands()
	if err != nil {
		return nil, err
	}
	return NewWithBands(opts, bands)
}

// NewWithBands is New with a caller-supplied band table.
func NewWithBands(opts Options, bands *Bands) (*Synthesiser, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Synthesiser{
		completer:  opts.Completer,
		timeout:    opts.Timeout,
		onFallback: opts.OnFallback,
		bands:      bands,
		prompts:    prompts,
		log:        logging.New("synth"),
	}, nil
}

// Bands exposes the band lookup, e.g. for the report legend.
func (s *Synthesiser) Bands() *Bands {
	return s.bands
}

// ErrLLMDisabled is the fallback cause when no completer is configured.
var ErrLLMDisabled = errors.New("LLM disabled")

// Synthesise produces all five blocks. It fails only when the input is
// incomplete or ctx is cancelled; LLM failures degrade to the template.
func (s *Synthesiser) Synthesise(ctx context.Context, in Input) (Narratives, error) {
	scores := make(map[instrument.Instrument]instrument.Scores, len(instrument.Battery))
	for _, inst := range instrument.Battery {
		sc, ok := in.Scores[inst]
		if !ok || sc.Empty() {
			return nil, fmt.Errorf("synthesise: no scores for %s", inst)
		}
		scores[inst] = sc.Clone()
	}

	blocks := make([]string, len(Sections))
	g, gctx := errgroup.WithContext(ctx)
	for i, sec := range Sections {
		g.Go(func() error {
			var text string
			if sec == Overall {
				text = s.overall(gctx, scores, in.DialogContext)
			} else {
				text = s.instrument(gctx, scores[instrument.Instrument(sec)], in.DialogContext)
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			blocks[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("synthesise: %w", err)
	}

	out := make(Narratives, len(Sections))
	for i, sec := range Sections {
		out[sec] = blocks[i]
	}
	return out, nil
}

func (s *Synthesiser) instrument(ctx context.Context, sc instrument.Scores, dialogContext string) string {
	sec := Section(sc.Instrument)
	if s.completer == nil {
		s.fallback(sec, ErrLLMDisabled)
		return s.fallbackInstrument(sc)
	}

	ctx = llm.WithPurpose(ctx, "narrative-"+sec.Key())
	text, err := s.completer.Complete(ctx, s.prompts[sec], buildInstrumentUserMessage(sc, dialogContext), s.timeout)
	if err != nil {
		s.fallback(sec, err)
		return s.fallbackInstrument(sc)
	}
	return text
}

func (s *Synthesiser) overall(ctx context.Context, scores map[instrument.Instrument]instrument.Scores, dialogContext string) string {
	if s.completer == nil {
		s.fallback(Overall, ErrLLMDisabled)
		return s.fallbackOverall(scores)
	}

	ctx = llm.WithPurpose(ctx, "narrative-overall")
	raw, err := s.completer.CompleteJSON(ctx, s.prompts[Overall], buildOverallUserMessage(scores, dialogContext), OverallSchema, s.timeout)
	if err == nil {
		var out overallOutput
		if err = json.Unmarshal(raw, &out); err == nil {
			return renderOverall(out)
		}
	}

	// A model that ignored the format but still wrote prose is used as is.
	var inv *llm.ErrInvalidResponse
	if errors.As(err, &inv) {
		if text := plainText(inv.Content); text != "" {
			s.log.Warn("overall block is not structured, using plain text", "err", err)
			return text
		}
	}

	s.fallback(Overall, err)
	return s.fallbackOverall(scores)
}

// plainText returns content when it is non-empty prose rather than JSON.
func plainText(content json.RawMessage) string {
	text := strings.TrimSpace(string(content))
	if text == "" || json.Valid(content) {
		return ""
	}
	return text
}

func (s *Synthesiser) fallback(sec Section, cause error) {
	if !errors.Is(cause, ErrLLMDisabled) {
		s.log.Warn("LLM narrative failed, using template", "section", sec, "err", cause)
	}
	if s.onFallback != nil {
		s.onFallback(sec, cause)
	}
}
