//go:build gcloud

package deliveryrecorder

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/mediware/smart-health-backend/internal/domain"
)

type bigQueryRecord struct {
	RecordedAt    time.Time `bigquery:"recorded_at"`
	JobID         string    `bigquery:"job_id"`
	Kind          string    `bigquery:"kind"`
	Outcome       string    `bigquery:"outcome"`
	ScheduledFor  time.Time `bigquery:"scheduled_for"`
	DispatchedAt  time.Time `bigquery:"dispatched_at"`
	TokenCount    int64     `bigquery:"token_count"`
	FailedCount   int64     `bigquery:"failed_count"`
	ScheduleLagMs int64     `bigquery:"schedule_lag_ms"`
}

type bigQueryRecorder struct {
	client   *bigquery.Client
	inserter *bigquery.Inserter
	dataset  string
	table    string
}

func NewRecorder(ctx context.Context, cfg *Config) (domain.DeliveryRecorder, error) {
	if cfg.Disabled {
		slog.InfoContext(ctx, "delivery result recording disabled")
		return NewNoopRecorder(), nil
	}

	if cfg.BigQueryProjectID == "" {
		slog.WarnContext(ctx, "BigQuery project ID not configured, delivery result recording disabled")
		return NewNoopRecorder(), nil
	}

	client, err := bigquery.NewClient(ctx, cfg.BigQueryProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create BigQuery client, delivery result recording disabled",
			slog.String("error", err.Error()),
			slog.String("project_id", cfg.BigQueryProjectID),
		)
		return NewNoopRecorder(), nil
	}

	table := client.Dataset(cfg.BigQueryDataset).Table(cfg.BigQueryTable)
	inserter := table.Inserter()

	slog.InfoContext(ctx, "delivery result recorder initialized",
		slog.String("type", "bigquery"),
		slog.String("project_id", cfg.BigQueryProjectID),
		slog.String("dataset", cfg.BigQueryDataset),
		slog.String("table", cfg.BigQueryTable),
	)

	return &bigQueryRecorder{
		client:   client,
		inserter: inserter,
		dataset:  cfg.BigQueryDataset,
		table:    cfg.BigQueryTable,
	}, nil
}

func (r *bigQueryRecorder) RecordDelivery(ctx context.Context, record domain.DeliveryRecord) error {
	row := &bigQueryRecord{
		RecordedAt:    time.Now(),
		JobID:         record.JobID,
		Kind:          record.Kind,
		Outcome:       record.Outcome,
		ScheduledFor:  record.ScheduledFor,
		DispatchedAt:  record.DispatchedAt,
		TokenCount:    int64(record.TokenCount),
		FailedCount:   int64(record.FailedCount),
		ScheduleLagMs: record.ScheduleLag().Milliseconds(),
	}

	if err := r.inserter.Put(ctx, row); err != nil {
		slog.WarnContext(ctx, "failed to insert delivery result to BigQuery",
			slog.String("error", err.Error()),
			slog.String("job_id", record.JobID),
		)
	}

	return nil
}

func (r *bigQueryRecorder) Flush(ctx context.Context) error {
	return nil
}

func (r *bigQueryRecorder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
