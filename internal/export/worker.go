package export

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"revdash/internal/dashboard"
	"revdash/internal/jobs"
)

// Documents rendered by an export job, in upload order.
var allDocuments = []Document{DocTransactions, DocProducts, DocSummary}

// NewJobHandler returns the handler the job queue runs for export jobs: it
// loads the job's date range, renders the three CSV documents and uploads
// them. Result URIs are recorded on the job itself; the queue persists the
// job after the handler returns.
func NewJobHandler(loader *dashboard.Loader, uploader Uploader, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, j jobs.Job) error {
		job, ok := j.(*jobs.ExportJob)
		if !ok {
			return fmt.Errorf("export handler: unexpected job type %T", j)
		}

		txs, err := loader.Load(ctx, job.Start, job.End)
		if err != nil {
			return fmt.Errorf("export handler: loading range: %w", err)
		}

		snap := &dashboard.Snapshot{
			Start:        job.Start,
			End:          job.End,
			Transactions: txs,
			Aggregates:   dashboard.Aggregate(txs),
		}

		prefix := job.Prefix
		if prefix == "" {
			prefix = fmt.Sprintf("exports/%s_%s",
				job.Start.UTC().Format("2006-01-02"), job.End.UTC().Format("2006-01-02"))
		}

		uris := make([]string, 0, len(allDocuments))
		for _, doc := range allDocuments {
			data, err := Render(doc, snap)
			if err != nil {
				return fmt.Errorf("export handler: rendering %s: %w", doc, err)
			}
			uri, err := uploader.Upload(ctx, prefix+"/"+doc.Filename(), data)
			if err != nil {
				return fmt.Errorf("export handler: uploading %s: %w", doc, err)
			}
			uris = append(uris, uri)
		}

		job.ResultURIs = uris
		log.Info().
			Str("job_id", job.JobID).
			Strs("uris", uris).
			Int("transactions", len(txs)).
			Msg("export job completed")
		return nil
	}
}
