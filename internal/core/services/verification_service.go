package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"
	"registryhub/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Verification errors
var (
	ErrBatchNotFound  = errors.New("verification batch not found")
	ErrEmptyBatch     = errors.New("spreadsheet contains no data rows")
	ErrBadSpreadsheet = errors.New("file is not a readable spreadsheet")
)

// Comparison statuses
const (
	CompareMatched = "matched"
	CompareMissing = "missing"
	CompareExtra   = "extra"
)

// VerificationService ingests expected-count batches and reconciles
// them against actual registry counts.
type VerificationService struct {
	verifRepo   *repositories.VerificationRepository
	docRepo     *repositories.DocumentRepository
	historyRepo *repositories.HistoryRepository
	userRepo    repositories.UserRepository
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	verifRepo *repositories.VerificationRepository,
	docRepo *repositories.DocumentRepository,
	historyRepo *repositories.HistoryRepository,
	userRepo repositories.UserRepository,
) *VerificationService {
	return &VerificationService{
		verifRepo:   verifRepo,
		docRepo:     docRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
	}
}

func (s *VerificationService) requireActiveUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// UploadResult describes one ingested batch
type UploadResult struct {
	BatchID  string `json:"batch_id"`
	RowCount int    `json:"row_count"`
}

// Expected spreadsheet columns, in order:
// bureau | registre type | hegira year | gregorian year |
// expected acts | anomaly count | anomaly act numbers
const batchColumns = 7

// UploadBatch parses an expected-counts spreadsheet and stores it as
// one immutable batch.
func (s *VerificationService) UploadBatch(ctx context.Context, data []byte, filename string, uploaderID uint) (*UploadResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, ErrBadSpreadsheet
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrBadSpreadsheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, ErrBadSpreadsheet
	}

	batchID := uuid.NewString()
	records := make([]*models.ExcelRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			// header row
			continue
		}
		record, err := parseBatchRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if record == nil {
			continue // blank row
		}
		record.BatchID = batchID
		record.UploadedBy = uploaderID
		record.OriginalFilename = filename
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}

	if err := s.verifRepo.CreateBatch(ctx, records); err != nil {
		return nil, err
	}

	s.logActivity(ctx, uploaderID, domain.ActionBatchUploaded,
		fmt.Sprintf(`{"batch_id":%q,"rows":%d,"filename":%q}`, batchID, len(records), filename))

	log.Printf("✅ Verification batch uploaded: %s (%d rows)", batchID, len(records))
	return &UploadResult{BatchID: batchID, RowCount: len(records)}, nil
}

// parseBatchRow converts one spreadsheet row; returns (nil, nil) for
// blank rows
func parseBatchRow(row []string) (*models.ExcelRecord, error) {
	cells := make([]string, batchColumns)
	for i := 0; i < batchColumns && i < len(row); i++ {
		cells[i] = strings.TrimSpace(row[i])
	}
	if cells[0] == "" && cells[1] == "" {
		return nil, nil
	}

	if cells[0] == "" {
		return nil, fmt.Errorf("bureau is required: %w", domain.ErrValidation)
	}
	if !domain.ValidRegistreType(cells[1]) {
		return nil, fmt.Errorf("unknown registre type %q: %w", cells[1], domain.ErrValidation)
	}
	year, err := strconv.Atoi(cells[3])
	if err != nil || year <= 0 {
		return nil, fmt.Errorf("bad gregorian year %q: %w", cells[3], domain.ErrValidation)
	}
	expected, err := strconv.Atoi(cells[4])
	if err != nil || expected < 0 {
		return nil, fmt.Errorf("bad expected count %q: %w", cells[4], domain.ErrValidation)
	}
	anomalies := 0
	if cells[5] != "" {
		anomalies, err = strconv.Atoi(cells[5])
		if err != nil || anomalies < 0 {
			return nil, fmt.Errorf("bad anomaly count %q: %w", cells[5], domain.ErrValidation)
		}
	}

	return &models.ExcelRecord{
		Bureau:        cells[0],
		RegistreType:  cells[1],
		HegiraYear:    cells[2],
		GregorianYear: year,
		ExpectedCount: expected,
		AnomalyCount:  anomalies,
		AnomalyActes:  cells[6],
	}, nil
}

// ListBatches summarizes uploaded batches
func (s *VerificationService) ListBatches(ctx context.Context) ([]repositories.BatchSummary, error) {
	return s.verifRepo.ListBatches(ctx)
}

// GetBatchRows returns the raw rows of one batch
func (s *VerificationService) GetBatchRows(ctx context.Context, batchID string) ([]*models.ExcelRecord, error) {
	rows, err := s.verifRepo.GetBatchRows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrBatchNotFound
	}
	return rows, nil
}

// ComparisonRow is one reconciled (bureau, type, year) group
type ComparisonRow struct {
	Bureau       string `json:"bureau"`
	RegistreType string `json:"registre_type"`
	Year         int    `json:"year"`
	Expected     int64  `json:"expected"`
	Actual       int64  `json:"actual"`
	Difference   int64  `json:"difference"`
	Status       string `json:"status"`
}

// ComparisonSummary aggregates one comparison run
type ComparisonSummary struct {
	TotalGroups int     `json:"total_groups"`
	Matched     int     `json:"matched"`
	Missing     int     `json:"missing"`
	Extra       int     `json:"extra"`
	MatchRate   float64 `json:"match_rate"`
}

// ComparisonResult is the full output of Compare
type ComparisonResult struct {
	BatchID string            `json:"batch_id"`
	Rows    []ComparisonRow   `json:"rows"`
	Summary ComparisonSummary `json:"summary"`
}

type groupKey struct {
	bureau string
	rtype  string
	year   int
}

// Compare diffs the batch's expected counts against actual accepted
// document counts per (bureau, type, year). The comparison is a full
// outer join: groups present on only one side still surface — batch-only
// groups as missing with actual=0, registry-only groups as extra with
// expected=0. Both sides are restricted to the caller's bureau scope, so
// a supervisor never reads counts from bureaus outside their assignment.
func (s *VerificationService) Compare(ctx context.Context, batchID string, callerID uint) (*ComparisonResult, error) {
	start := time.Now()

	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	scope := ScopeFor(caller)

	batchRows, err := s.verifRepo.GetBatchRows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(batchRows) == 0 {
		return nil, ErrBatchNotFound
	}

	expected := make(map[groupKey]int64)
	for _, row := range batchRows {
		if !scope.CanViewBureau(row.Bureau) {
			continue
		}
		key := groupKey{row.Bureau, row.RegistreType, row.GregorianYear}
		expected[key] += int64(row.ExpectedCount)
	}

	actualGroups, err := s.docRepo.CountAcceptedByGroup(ctx, scope)
	if err != nil {
		return nil, err
	}
	actual := make(map[groupKey]int64, len(actualGroups))
	for _, g := range actualGroups {
		actual[groupKey{g.Bureau, g.RegistreType, g.Year}] = g.Count
	}

	keys := make(map[groupKey]struct{}, len(expected)+len(actual))
	for k := range expected {
		keys[k] = struct{}{}
	}
	for k := range actual {
		keys[k] = struct{}{}
	}

	result := &ComparisonResult{BatchID: batchID}
	for key := range keys {
		exp := expected[key]
		act := actual[key]

		row := ComparisonRow{
			Bureau:       key.bureau,
			RegistreType: key.rtype,
			Year:         key.year,
			Expected:     exp,
			Actual:       act,
			Difference:   act - exp,
		}
		switch {
		case exp == act:
			row.Status = CompareMatched
			result.Summary.Matched++
		case exp > act:
			row.Status = CompareMissing
			result.Summary.Missing++
		default:
			row.Status = CompareExtra
			result.Summary.Extra++
		}
		metrics.ReconciliationGroups.WithLabelValues(row.Status).Inc()
		result.Rows = append(result.Rows, row)
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		a, b := result.Rows[i], result.Rows[j]
		if a.Bureau != b.Bureau {
			return a.Bureau < b.Bureau
		}
		if a.RegistreType != b.RegistreType {
			return a.RegistreType < b.RegistreType
		}
		return a.Year < b.Year
	})

	result.Summary.TotalGroups = len(result.Rows)
	if result.Summary.TotalGroups > 0 {
		result.Summary.MatchRate = math.Round(
			float64(result.Summary.Matched) / float64(result.Summary.TotalGroups) * 100)
	}

	metrics.ReconciliationRuns.Observe(time.Since(start).Seconds())
	return result, nil
}

// DeleteBatch removes every row of a batch. Documents are untouched.
func (s *VerificationService) DeleteBatch(ctx context.Context, batchID string, callerID uint) error {
	removed, err := s.verifRepo.DeleteBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrBatchNotFound
	}

	s.logActivity(ctx, callerID, domain.ActionBatchDeleted,
		fmt.Sprintf(`{"batch_id":%q,"rows":%d}`, batchID, removed))

	log.Printf("🗑️ Verification batch deleted: %s (%d rows)", batchID, removed)
	return nil
}

// logActivity appends an activity entry, log-and-continue
func (s *VerificationService) logActivity(ctx context.Context, userID uint, action domain.Action, details string) {
	entry := &models.ActivityLog{
		UserID:     userID,
		Action:     string(action),
		EntityType: "verification_batch",
		Details:    details,
	}
	if err := s.historyRepo.AppendActivity(ctx, entry); err != nil {
		log.Printf("⚠️ Failed to append activity log (%s): %v", action, err)
	}
}
