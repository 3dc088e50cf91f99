package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// ReportArchiver uploads finished scan reports as JSON objects keyed by scan
// date and ID, e.g. "scans/2026/08/06/<scan_id>.json".
type ReportArchiver struct {
	client *Client
}

// NewReportArchiver creates a ReportArchiver backed by the given Client.
func NewReportArchiver(c *Client) *ReportArchiver {
	return &ReportArchiver{client: c}
}

// Archive serializes the report and uploads it. The object key embeds the
// scan start date so cold storage stays browsable by day.
func (a *ReportArchiver) Archive(ctx context.Context, report *domain.ScanReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal report %s: %w", report.ScanID, err)
	}

	key := fmt.Sprintf("scans/%s/%s.json",
		report.StartedAt.UTC().Format("2006/01/02"), report.ScanID)

	_, err = a.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put report %s: %w", report.ScanID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ReportArchiver = (*ReportArchiver)(nil)
