package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/profilebot/internal/archive"
	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/report"
	"github.com/abhisek/profilebot/internal/session"
	"github.com/abhisek/profilebot/internal/synth"
)

const (
	reportReadyText = "Ваш отчёт готов. Полный отчёт передан специалисту.\n\n%s"
	reportLocalText = "Ваш отчёт готов. Загрузить его в архив не удалось, поэтому отправляю файл напрямую."
	reportFailText  = "Извините, подготовить отчёт не удалось. Мы уже разбираемся. Чтобы пройти тестирование заново, отправьте /start."
)

// start launches the completion job for s. Caller holds a.mu.
func (r *Runtime) start(a *actor, s *session.Session) {
	a.stop()
	gen := a.gen
	ctx, cancel := context.WithCancel(r.base)
	a.cancel = cancel
	snapshot := s.Clone()

	r.jobs.Add(1)
	go func() {
		defer r.jobs.Done()
		defer cancel()
		r.complete(ctx, a, gen, snapshot)
	}()
}

// outcome is what the completion job hands back to its session.
type outcome struct {
	narratives synth.Narratives
	artefacts  []session.Artefact
	reply      session.Reply
	status     string
}

func (r *Runtime) complete(ctx context.Context, a *actor, gen uint64, s *session.Session) {
	started := time.Now()
	log := r.log.With("session", s.ID, "user", s.UserID)

	out, err := r.run(ctx, s)
	if err != nil {
		if ctx.Err() != nil {
			r.metrics.ObservePipeline("cancelled", time.Since(started))
			log.Info("completion job cancelled")
			return
		}
		log.Error("completion job failed", "err", err)
		out = outcome{reply: session.Reply{Text: reportFailText}, status: "failed"}
	}
	r.metrics.ObservePipeline(out.status, time.Since(started))

	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		log.Info("session moved on, discarding report")
		return
	}
	ns := a.sess.Clone()
	ns.Pending = false
	ns.Narratives = out.narratives
	ns.Artefacts = out.artefacts
	a.sess = ns
	a.cancel = nil
	a.mu.Unlock()

	if out.status == "failed" {
		r.metrics.SessionFinished("failed")
	} else {
		r.metrics.SessionFinished("completed")
	}
	r.notify(s.UserID, out.reply)
}

// run synthesises, composes and publishes. It returns an error only when no
// report could be produced.
func (r *Runtime) run(ctx context.Context, s *session.Session) (outcome, error) {
	narratives, err := r.synth.Synthesise(ctx, synth.Input{Scores: s.Scores})
	if err != nil {
		return outcome{}, err
	}

	arts, err := r.composer.Compose(ctx, ReportInput(r.machine, s, narratives))
	if err != nil {
		return outcome{}, err
	}
	defer arts.Cleanup()

	pub, err := r.publisher.Publish(ctx, s.ID, arts)
	if err != nil && ctx.Err() != nil {
		return outcome{}, ctx.Err()
	}
	r.countUpload(pub.Short)
	r.countUpload(pub.Full)
	if pub.Full.Err != nil {
		r.log.Warn("full report kept locally", "session", s.ID, "path", pub.Full.Path, "err", pub.Full.Err)
	}

	out := outcome{
		narratives: narratives,
		artefacts:  []session.Artefact{artefact(pub.Short), artefact(pub.Full)},
		status:     "published",
	}
	if pub.Short.Err == nil {
		out.reply = session.Reply{Text: fmt.Sprintf(reportReadyText, pub.Short.URL)}
		return out, nil
	}
	out.status = "local"
	out.reply = session.Reply{
		Text: reportLocalText,
		Files: []session.Attachment{{
			Path: pub.Short.Path,
			Name: pub.Short.Filename,
			MIME: "application/pdf",
		}},
	}
	return out, nil
}

// ReportInput collects what the report of a completed session shows.
func ReportInput(m *session.Machine, s *session.Session, narratives synth.Narratives) report.Input {
	answers := make(map[instrument.Instrument][]report.AnswerRow, len(instrument.Battery))
	for _, inst := range instrument.Battery {
		answers[inst] = report.AnswerRows(m.Bank.ItemsFor(inst), m.ResponsesFor(s, inst))
	}
	return report.Input{
		UserID:      s.UserID,
		Name:        s.DisplayName,
		CompletedAt: s.CompletedAt,
		Scores:      s.Scores,
		Narratives:  narratives,
		Answers:     answers,
	}
}

func (r *Runtime) countUpload(up report.Upload) {
	status := "uploaded"
	switch {
	case errors.Is(up.Err, archive.ErrDisabled):
		status = "disabled"
	case up.Err != nil:
		status = "failed"
	}
	r.metrics.Upload(string(up.Variant), status)
}

func artefact(up report.Upload) session.Artefact {
	a := session.Artefact{Variant: string(up.Variant), Filename: up.Filename, URL: up.URL}
	if up.Err != nil {
		a.LocalPath = up.Path
	}
	return a
}

func (r *Runtime) notify(userID string, reply session.Reply) {
	n := r.currentNotifier()
	if n == nil {
		r.log.Warn("no notifier, final reply dropped", "user", userID, "text", firstLine(reply.Text))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.base), r.notifyTTL)
	defer cancel()
	if err := n.Notify(ctx, userID, reply); err != nil {
		r.log.Error("deliver final reply", "user", userID, "err", err)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
