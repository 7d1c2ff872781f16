package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/profilebot/internal/archive"
	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/store"
)

// DefaultUploadTimeout bounds a single file upload and the month folder
// lookup that precedes it.
const DefaultUploadTimeout = 60 * time.Second

// Upload is the outcome of publishing one document.
type Upload struct {
	Document
	URL string
	// Err is set when the upload failed; the local file is kept.
	Err error
}

// Published is the outcome of publishing both documents.
type Published struct {
	FolderID string
	Short    Upload
	Full     Upload
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	Archive archive.Archive
	// BaseFolder is the archive folder the year folders live in.
	BaseFolder string
	Timeout    time.Duration
	// Reports, when set, records every upload attempt.
	Reports store.ReportRepo
	// OnUpload is called once per document with its upload error.
	OnUpload func(v Variant, err error)
}

// Publisher uploads report artefacts into the month folder of their
// completion date.
type Publisher struct {
	archive  archive.Archive
	base     string
	timeout  time.Duration
	reports  store.ReportRepo
	onUpload func(Variant, error)
	log      *slog.Logger
}

// NewPublisher returns a Publisher. A nil archive publishes nowhere.
func NewPublisher(opts PublisherOptions) *Publisher {
	if opts.Archive == nil {
		opts.Archive = archive.Disabled{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultUploadTimeout
	}
	return &Publisher{
		archive:  opts.Archive,
		base:     opts.BaseFolder,
		timeout:  opts.Timeout,
		reports:  opts.Reports,
		onUpload: opts.OnUpload,
		log:      logging.New("publish"),
	}
}

// Publish uploads both documents concurrently and removes each local file
// whose upload succeeded. The returned error joins the per-file failures;
// Published is filled in either case.
func (p *Publisher) Publish(ctx context.Context, sessionID string, a *Artefacts) (Published, error) {
	out := Published{
		Short: Upload{Document: a.Short},
		Full:  Upload{Document: a.Full},
	}

	folder, err := p.ensureFolder(ctx, a.CompletedAt)
	if err != nil {
		out.Short.Err, out.Full.Err = err, err
		p.record(ctx, sessionID, a.UserID, &out.Short)
		p.record(ctx, sessionID, a.UserID, &out.Full)
		return out, fmt.Errorf("publish: %w", err)
	}
	out.FolderID = folder

	var g errgroup.Group
	for _, up := range []*Upload{&out.Short, &out.Full} {
		g.Go(func() error {
			up.URL, up.Err = p.upload(ctx, folder, up.Document)
			p.record(ctx, sessionID, a.UserID, up)
			return nil
		})
	}
	g.Wait()

	return out, errors.Join(out.Short.Err, out.Full.Err)
}

func (p *Publisher) ensureFolder(ctx context.Context, t time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.archive.EnsureFolder(ctx, p.base, t.Year(), t.Month())
}

func (p *Publisher) upload(ctx context.Context, folder string, doc Document) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url, err := p.archive.Upload(ctx, doc.Path, folder, doc.Filename)
	if err != nil {
		return "", err
	}
	if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.log.Warn("remove uploaded report", "path", doc.Path, "err", err)
	}
	return url, nil
}

func (p *Publisher) record(ctx context.Context, sessionID, userID string, up *Upload) {
	if p.onUpload != nil {
		p.onUpload(up.Variant, up.Err)
	}
	rec := store.ReportRecord{
		SessionID: sessionID,
		UserID:    userID,
		Variant:   string(up.Variant),
		Filename:  up.Filename,
		URL:       up.URL,
		Status:    store.ReportUploaded,
	}
	switch {
	case errors.Is(up.Err, archive.ErrDisabled):
		rec.Status = store.ReportLocal
		rec.LocalPath = up.Path
	case up.Err != nil:
		rec.Status = store.ReportFailed
		rec.LocalPath = up.Path
		rec.ErrorMessage = up.Err.Error()
		p.log.Error("report upload failed", "variant", up.Variant, "file", up.Filename, "err", up.Err)
	default:
		p.log.Info("report uploaded", "variant", up.Variant, "url", up.URL)
	}

	if p.reports == nil {
		return
	}
	if err := p.reports.AppendReport(context.WithoutCancel(ctx), rec); err != nil {
		p.log.Warn("record report upload", "err", err)
	}
}
