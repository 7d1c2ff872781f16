package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/abhisek/profilebot/internal/bot"
	"github.com/abhisek/profilebot/internal/config"
	"github.com/abhisek/profilebot/internal/itembank"
	"github.com/abhisek/profilebot/internal/llm"
	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/metrics"
	"github.com/abhisek/profilebot/internal/report"
	"github.com/abhisek/profilebot/internal/session"
	"github.com/abhisek/profilebot/internal/store"
	"github.com/abhisek/profilebot/internal/synth"
)

// services is the object graph shared by serve, console and render.
type services struct {
	cfg       *config.Config
	store     *store.Store
	bank      *itembank.Bank
	machine   *session.Machine
	synth     *synth.Synthesiser
	composer  *report.Composer
	publisher *report.Publisher
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	runtime   *bot.Runtime
}

type buildOpts struct {
	// offline skips the archive and the runtime.
	offline bool
	// noLLM forces the template narratives.
	noLLM bool
	// scratch overrides cfg.Scratch.Dir.
	scratch string
}

func buildServices(ctx context.Context, cfg *config.Config, opts buildOpts) (_ *services, err error) {
	log := logging.New("cmd")
	s := &services{cfg: cfg}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.store, err = openStore(cfg); err != nil {
		return nil, err
	}
	if s.bank, err = loadBank(cfg); err != nil {
		return nil, err
	}
	s.machine = session.NewMachine(s.bank)

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.MustNewMetrics(s.registry)

	var completer llm.Completer
	if !opts.noLLM {
		completer = newCompleter(ctx, cfg, s.store.EventRepo())
	}
	s.synth, err = synth.New(synth.Options{
		Completer: completer,
		Timeout:   cfg.LLM.Timeout,
		OnFallback: func(sec synth.Section, _ error) {
			s.metrics.LLMFallback(sec.Key())
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load narratives: %w", err)
	}

	scratch := cfg.Scratch.Dir
	if opts.scratch != "" {
		scratch = opts.scratch
	}
	var fontDirs []string
	if cfg.Fonts.Dir != "" {
		fontDirs = append(fontDirs, cfg.Fonts.Dir)
	}
	s.composer, err = report.NewComposer(report.Options{
		Fonts:      report.FindFonts(fontDirs...),
		Bands:      s.synth.Bands(),
		ScratchDir: scratch,
	})
	if err != nil {
		return nil, err
	}

	if opts.offline {
		return s, nil
	}

	arch, disabled, err := cfg.NewArchive()
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if disabled != "" {
		log.Warn("report archive disabled, reports are sent as files", "reason", disabled)
	}
	s.publisher = report.NewPublisher(report.PublisherOptions{
		Archive:    arch,
		BaseFolder: cfg.Archive.RootFolder,
		Timeout:    cfg.Archive.UploadTimeout,
		Reports:    s.store.ReportRepo(),
	})

	s.runtime, err = bot.New(bot.Options{
		Machine:     s.machine,
		Synth:       s.synth,
		Composer:    s.composer,
		Publisher:   s.publisher,
		Metrics:     s.metrics,
		SessionTTL:  cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *services) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

func loadBank(cfg *config.Config) (*itembank.Bank, error) {
	if cfg.Assets.Dir == "" {
		return itembank.Load()
	}
	return itembank.LoadFS(os.DirFS(cfg.Assets.Dir), itembank.DefaultRules())
}

// newCompleter builds the LLM completer. It returns nil when narratives
// should come from the templates.
func newCompleter(ctx context.Context, cfg *config.Config, events store.EventRepo) llm.Completer {
	log := logging.New("cmd")
	pcfg, err := cfg.LLMProviderConfig()
	if err != nil {
		log.Warn("LLM narratives unavailable, using templates", "err", err)
		return nil
	}
	provider, err := llm.NewProvider(ctx, pcfg, events)
	if err != nil {
		log.Warn("LLM provider not configured, using templates", "err", err)
		return nil
	}
	log.Info("LLM narratives enabled", "provider", pcfg.Provider, "model", provider.ModelID())
	return llm.NewCompleter(provider, cfg.LLM.MaxTokens)
}
