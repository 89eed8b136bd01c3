// Package archive exports completed rankings to S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// Archiver uploads ranking exports to an object storage bucket.
type Archiver struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, cfg domain.ArchiveConfig) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	a := &Archiver{client: client, bucket: cfg.Bucket}
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}

	slog.Info("archive ready",
		"endpoint", cfg.Endpoint,
		"bucket", cfg.Bucket,
	)

	return a, nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Export uploads the ranking as CSV under <tenant>/<ranking-id>.csv and
// returns the object name.
func (a *Archiver) Export(ctx context.Context, ranking *domain.Ranking) (string, error) {
	data, err := RankingCSV(ranking)
	if err != nil {
		return "", err
	}

	object := fmt.Sprintf("%s/%s.csv", ranking.TenantID, ranking.ID)
	_, err = a.client.PutObject(ctx, a.bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}

	slog.Info("ranking archived",
		"ranking_id", ranking.ID,
		"tenant_id", ranking.TenantID,
		"object", object,
		"bytes", len(data),
	)

	return object, nil
}

// csvHeader is the export column order. Raw attribute columns mirror the
// import format; derived columns follow.
var csvHeader = []string{
	"ID", "Risk", "Demand fluctuation", "Average stock", "Daily usage",
	"Unit cost", "Lead time", "Consignment stock", "Unit size",
	"Criticality", "Demand", "Supply",
	"TOPSIS score", "Class", "Fuzzy TOPSIS score", "Fuzzy class",
}

// RankingCSV renders a ranking's item snapshot as CSV, one row per item
// in rank order.
func RankingCSV(ranking *domain.Ranking) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, it := range ranking.Items {
		row := []string{
			strconv.Itoa(it.ID),
			it.Risk,
			it.DemandFluctuation,
			formatFloat(it.AverageStock),
			formatFloat(it.DailyUsage),
			formatFloat(it.UnitCost),
			strconv.Itoa(it.LeadTime),
			it.ConsignmentStock,
			it.UnitSize,
			formatFloat(it.CriticalityAgg),
			formatFloat(it.DemandAgg),
			formatFloat(it.SupplyAgg),
			formatFloat(it.TOPSISScore),
			it.Class,
			formatFloat(it.FuzzyTOPSISScore),
			it.FuzzyClass,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
