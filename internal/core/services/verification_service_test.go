package services

import (
	"context"
	"testing"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildBatchSheet produces an xlsx payload in the expected-counts layout
func buildBatchSheet(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []interface{}{
		"Bureau", "Registre", "Annee Hegire", "Annee Gregorienne",
		"Actes Attendus", "Anomalies", "Actes Anormaux",
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestUploadBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	data := buildBatchSheet(t, [][]interface{}{
		{"rabat", "naissances", "1441", 2020, 150, 2, "14, 77"},
		{"rabat", "deces", "1441", 2020, 40, 0, ""},
		{"", "", "", "", "", "", ""}, // blank rows are skipped
		{"fes", "jugements", "1442", 2021, 12, 1, "3"},
	})

	result, err := env.verifService.UploadBatch(ctx, data, "registres_2020.xlsx", supervisor.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
	assert.NotEmpty(t, result.BatchID)

	// rows come back sorted by bureau, type, year
	rows, err := env.verifService.GetBatchRows(ctx, result.BatchID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "fes", rows[0].Bureau)
	assert.Equal(t, "rabat", rows[2].Bureau)
	assert.Equal(t, "naissances", rows[2].RegistreType)
	assert.Equal(t, "1441", rows[2].HegiraYear)
	assert.Equal(t, 2020, rows[2].GregorianYear)
	assert.Equal(t, 150, rows[2].ExpectedCount)
	assert.Equal(t, 2, rows[2].AnomalyCount)
	assert.Equal(t, "14, 77", rows[2].AnomalyActes)

	batches, err := env.verifService.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, result.BatchID, batches[0].BatchID)
	assert.EqualValues(t, 3, batches[0].RowCount)
	assert.Equal(t, "registres_2020.xlsx", batches[0].OriginalFilename)
}

func TestUploadBatchRejectsBadRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	cases := map[string][][]interface{}{
		"unknown registre type": {{"rabat", "mariages", "1441", 2020, 10, 0, ""}},
		"bad gregorian year":    {{"rabat", "naissances", "1441", "abc", 10, 0, ""}},
		"negative expected":     {{"rabat", "naissances", "1441", 2020, -3, 0, ""}},
		"missing bureau":        {{"", "naissances", "1441", 2020, 10, 0, ""}},
	}

	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.verifService.UploadBatch(ctx, buildBatchSheet(t, rows), "bad.xlsx", supervisor.ID)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	t.Run("header only", func(t *testing.T) {
		_, err := env.verifService.UploadBatch(ctx, buildBatchSheet(t, nil), "empty.xlsx", supervisor.ID)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})

	t.Run("not a spreadsheet", func(t *testing.T) {
		_, err := env.verifService.UploadBatch(ctx, []byte("definitely not xlsx"), "note.txt", supervisor.ID)
		assert.ErrorIs(t, err, ErrBadSpreadsheet)
	})

	// failed uploads leave no rows behind
	assert.Zero(t, env.countRows(t, &models.ExcelRecord{}, ""))
}

func TestCompare(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat", "fes")

	// three accepted acts in (rabat, naissances, 2020)
	env.storedDocument(t, agent, supervisor, "rabat", 2020, "1")
	env.storedDocument(t, agent, supervisor, "rabat", 2020, "2")
	env.storedDocument(t, agent, supervisor, "rabat", 2020, "3")
	// one accepted act in a group the batch never mentions
	doc := env.uploadDocument(t, agent, "fes", "deces", 2021, "9")
	_, err := env.docService.StartReview(ctx, doc.ID, supervisor.ID)
	require.NoError(t, err)
	_, err = env.docService.Approve(ctx, doc.ID, supervisor.ID)
	require.NoError(t, err)
	// a pending document never counts as accepted
	env.uploadDocument(t, agent, "rabat", "naissances", 2020, "4")

	data := buildBatchSheet(t, [][]interface{}{
		{"rabat", "naissances", "1441", 2020, 3, 0, ""},
		{"rabat", "deces", "1441", 2020, 5, 0, ""},
	})
	uploaded, err := env.verifService.UploadBatch(ctx, data, "batch.xlsx", supervisor.ID)
	require.NoError(t, err)

	result, err := env.verifService.Compare(ctx, uploaded.BatchID, supervisor.ID)
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	// rows come back sorted by bureau, type, year
	extra := result.Rows[0]
	assert.Equal(t, "fes", extra.Bureau)
	assert.Equal(t, CompareExtra, extra.Status)
	assert.EqualValues(t, 0, extra.Expected)
	assert.EqualValues(t, 1, extra.Actual)
	assert.EqualValues(t, 1, extra.Difference)

	missing := result.Rows[1]
	assert.Equal(t, "deces", missing.RegistreType)
	assert.Equal(t, CompareMissing, missing.Status)
	assert.EqualValues(t, 5, missing.Expected)
	assert.EqualValues(t, 0, missing.Actual)
	assert.EqualValues(t, -5, missing.Difference)

	matched := result.Rows[2]
	assert.Equal(t, "naissances", matched.RegistreType)
	assert.Equal(t, CompareMatched, matched.Status)
	assert.EqualValues(t, 3, matched.Expected)
	assert.EqualValues(t, 3, matched.Actual)
	assert.EqualValues(t, 0, matched.Difference)

	assert.Equal(t, 3, result.Summary.TotalGroups)
	assert.Equal(t, 1, result.Summary.Matched)
	assert.Equal(t, 1, result.Summary.Missing)
	assert.Equal(t, 1, result.Summary.Extra)
	assert.InDelta(t, 33.0, result.Summary.MatchRate, 0.001)
}

func TestCompareUnknownBatch(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "boss", domain.RoleAdmin)

	_, err := env.verifService.Compare(context.Background(), "no-such-batch", admin.ID)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestCompareScopedToBureaus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supRabat := env.createUser(t, "sup-rabat", domain.RoleSupervisor, "rabat")
	supEmpty := env.createUser(t, "sup-none", domain.RoleSupervisor)
	admin := env.createUser(t, "boss", domain.RoleAdmin)

	env.storedDocument(t, agent, supRabat, "rabat", 2020, "1")
	// an accepted act in a bureau the rabat supervisor is not assigned to
	env.storedDocument(t, agent, admin, "fes", 2021, "9")

	data := buildBatchSheet(t, [][]interface{}{
		{"rabat", "naissances", "1441", 2020, 1, 0, ""},
		{"fes", "naissances", "1442", 2021, 4, 0, ""},
	})
	uploaded, err := env.verifService.UploadBatch(ctx, data, "batch.xlsx", admin.ID)
	require.NoError(t, err)

	t.Run("supervisor only sees assigned bureaus", func(t *testing.T) {
		result, err := env.verifService.Compare(ctx, uploaded.BatchID, supRabat.ID)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "rabat", result.Rows[0].Bureau)
		assert.Equal(t, CompareMatched, result.Rows[0].Status)
		assert.Equal(t, 1, result.Summary.TotalGroups)
	})

	t.Run("supervisor without bureaus sees nothing", func(t *testing.T) {
		result, err := env.verifService.Compare(ctx, uploaded.BatchID, supEmpty.ID)
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
		assert.Zero(t, result.Summary.TotalGroups)
	})

	t.Run("admin sees every group", func(t *testing.T) {
		result, err := env.verifService.Compare(ctx, uploaded.BatchID, admin.ID)
		require.NoError(t, err)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "fes", result.Rows[0].Bureau)
		assert.Equal(t, CompareMissing, result.Rows[0].Status)
		assert.EqualValues(t, 4, result.Rows[0].Expected)
		assert.EqualValues(t, 1, result.Rows[0].Actual)
	})
}

func TestDeleteBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")
	admin := env.createUser(t, "boss", domain.RoleAdmin)

	env.storedDocument(t, agent, supervisor, "rabat", 2020, "1")

	data := buildBatchSheet(t, [][]interface{}{
		{"rabat", "naissances", "1441", 2020, 1, 0, ""},
	})
	uploaded, err := env.verifService.UploadBatch(ctx, data, "batch.xlsx", supervisor.ID)
	require.NoError(t, err)

	require.NoError(t, env.verifService.DeleteBatch(ctx, uploaded.BatchID, admin.ID))
	assert.Zero(t, env.countRows(t, &models.ExcelRecord{}, ""))

	// documents survive batch deletion
	assert.EqualValues(t, 1, env.countRows(t, &models.Document{}, ""))

	err = env.verifService.DeleteBatch(ctx, uploaded.BatchID, admin.ID)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}
