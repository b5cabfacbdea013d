package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/archive"
	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/policy"
	"github.com/endotrace/endotrace/internal/report"
)

const pdfContentType = "application/pdf"

// ReportService renders PDF reports and keeps them in the archive when one is configured
type ReportService struct {
	db      *database.Database
	store   archive.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewReportService creates a new report service. store may be nil to disable archiving.
func NewReportService(db *database.Database, store archive.Store, logger *zap.Logger, m *metrics.Metrics) *ReportService {
	return &ReportService{db: db, store: store, logger: logger, metrics: m}
}

// GeneratedReport is a rendered document
type GeneratedReport struct {
	Filename   string
	Data       []byte
	ArchiveKey string
	// Warning is set when the document was rendered but could not be archived
	Warning string
}

// InventoryReport renders the endoscopes matching filter, one QR code per device
func (s *ReportService) InventoryReport(ctx context.Context, actor policy.Actor, filter database.EndoscopeFilter, keep bool) (*GeneratedReport, error) {
	if err := policy.Authorize(actor, policy.KindEndoscope, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	endoscopes, err := s.db.ListEndoscopes(filter)
	if err != nil {
		return nil, storeError("list endoscopes", err, "")
	}

	data, err := report.InventoryPDF("", endoscopes)
	if err != nil {
		return nil, fmt.Errorf("failed to render inventory report: %w", err)
	}
	s.metrics.ObserveReport(string(report.CategoryInventory))

	return s.finish(ctx, actor, report.CategoryInventory, data, keep), nil
}

// SterilisationArchiveReport renders the sterilisation reports matching filter
func (s *ReportService) SterilisationArchiveReport(ctx context.Context, actor policy.Actor, filter database.SterilisationReportFilter, keep bool) (*GeneratedReport, error) {
	if err := policy.Authorize(actor, policy.KindSterilisationReport, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	reports, err := s.db.ListSterilisationReports(filter)
	if err != nil {
		return nil, storeError("list sterilisation reports", err, "")
	}

	data, err := report.SterilisationPDF("", reports)
	if err != nil {
		return nil, fmt.Errorf("failed to render sterilisation report: %w", err)
	}
	s.metrics.ObserveReport(string(report.CategorySterilisation))

	return s.finish(ctx, actor, report.CategorySterilisation, data, keep), nil
}

func (s *ReportService) finish(ctx context.Context, actor policy.Actor, category report.Category, data []byte, keep bool) *GeneratedReport {
	now := time.Now().UTC()
	gen := &GeneratedReport{
		Filename: fmt.Sprintf("rapport_%s_%s.pdf", category, now.Format("20060102_150405")),
		Data:     data,
	}
	if !keep || s.store == nil {
		return gen
	}

	key := fmt.Sprintf("%s/%s-%s.pdf", category, now.Format(dateLayout), uuid.NewString())
	_, err := s.store.Put(ctx, key, bytes.NewReader(data), archive.PutOptions{
		ContentType: pdfContentType,
		Metadata: map[string]string{
			"category":     string(category),
			"generated-by": actor.Username,
		},
	})
	if err != nil {
		s.logger.Warn("Failed to archive report",
			zap.String("key", key),
			zap.String("driver", string(s.store.Driver())),
			zap.Error(err),
		)
		gen.Warning = "report generated but not archived"
		return gen
	}

	gen.ArchiveKey = key
	return gen
}

// ListArchivedReports lists archived documents, newest first
func (s *ReportService) ListArchivedReports(ctx context.Context, actor policy.Actor, prefix string) ([]archive.Info, error) {
	if err := policy.Authorize(actor, policy.KindArchive, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	if s.store == nil {
		return []archive.Info{}, nil
	}
	items, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, &StoreError{Op: "list archive", Err: err}
	}
	return items, nil
}

// FetchArchivedReport returns the bytes of one archived document
func (s *ReportService) FetchArchivedReport(ctx context.Context, actor policy.Actor, key string) (archive.Info, []byte, error) {
	if err := policy.Authorize(actor, policy.KindArchive, policy.ActionRead, ""); err != nil {
		return archive.Info{}, nil, err
	}
	key, err := cleanArchiveKey(key)
	if err != nil {
		return archive.Info{}, nil, err
	}
	if s.store == nil {
		return archive.Info{}, nil, fmt.Errorf("archive %q: %w", key, ErrNotFound)
	}

	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return archive.Info{}, nil, archiveError("get archive", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return archive.Info{}, nil, &StoreError{Op: "read archive", Err: err}
	}
	return info, data, nil
}

// DeleteArchivedReport removes one archived document
func (s *ReportService) DeleteArchivedReport(ctx context.Context, actor policy.Actor, key string) (err error) {
	defer func() { observe(s.metrics, policy.KindArchive, policy.ActionDelete, err) }()

	if err := policy.Authorize(actor, policy.KindArchive, policy.ActionDelete, ""); err != nil {
		return err
	}
	key, err = cleanArchiveKey(key)
	if err != nil {
		return err
	}
	if s.store == nil {
		return fmt.Errorf("archive %q: %w", key, ErrNotFound)
	}

	existed, err := s.store.Delete(ctx, key)
	if err != nil {
		return archiveError("delete archive", key, err)
	}
	if !existed {
		return fmt.Errorf("archive %q: %w", key, ErrNotFound)
	}

	s.logger.Info("Archived report deleted", zap.String("key", key), zap.String("username", actor.Username))
	return nil
}

// cleanArchiveKey strips the leading slash of a route parameter and rejects
// keys that cannot name a stored document
func cleanArchiveKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") || strings.HasSuffix(key, "/") || strings.HasSuffix(key, ".meta") {
		return "", &ValidationError{Field: "key", Message: "invalid archive key"}
	}
	return key, nil
}

func archiveError(op, key string, err error) error {
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return fmt.Errorf("archive %q: %w", key, ErrNotFound)
	case errors.Is(err, archive.ErrInvalidKey):
		return &ValidationError{Field: "key", Message: "invalid archive key"}
	}
	return &StoreError{Op: op, Err: err}
}
