package integration

import (
	"testing"
	"time"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_CreateAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite := SetupSuite(t)
	defer TeardownSuite(t)
	suite.ResetDatabase(t)

	ctx := suite.GetContext(t)
	repo := postgres.NewAuditRepository(suite.DB.DB)

	fixtures := testutil.NewFixtureBuilder()
	entry := fixtures.AuditEntry(func(e *models.AuditEntry) {
		e.RuleID = "gate-submit"
		e.Reason = testutil.StringPtr("approval gate matched")
		e.Approval = &models.AuditApproval{By: "carol", At: time.Now()}
	})

	require.NoError(t, repo.CreateAuditEntry(ctx, entry))

	entries, total, err := repo.ListAuditEntries(ctx, nil, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "alice", got.User)
	assert.Equal(t, []string{"sales-clerk"}, got.Roles)
	assert.Equal(t, "gate-submit", got.RuleID)
	assert.Equal(t, models.AuditExecuted, got.Result)
	require.NotNil(t, got.Reason)
	assert.Equal(t, "approval gate matched", *got.Reason)
	require.NotNil(t, got.Approval)
	assert.Equal(t, "carol", got.Approval.By)
}

func TestAuditRepository_EmptyRuleIDStoredAsNull(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite := SetupSuite(t)
	defer TeardownSuite(t)
	suite.ResetDatabase(t)

	ctx := suite.GetContext(t)
	repo := postgres.NewAuditRepository(suite.DB.DB)

	fixtures := testutil.NewFixtureBuilder()
	require.NoError(t, repo.CreateAuditEntry(ctx, fixtures.AuditEntry()))

	entries, _, err := repo.ListAuditEntries(ctx, nil, 20, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].RuleID)
	assert.Nil(t, entries[0].Approval)
}

func TestAuditRepository_Filters(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite := SetupSuite(t)
	defer TeardownSuite(t)
	suite.ResetDatabase(t)

	ctx := suite.GetContext(t)
	repo := postgres.NewAuditRepository(suite.DB.DB)

	fixtures := testutil.NewFixtureBuilder()
	require.NoError(t, repo.CreateAuditEntry(ctx, fixtures.AuditEntry()))
	require.NoError(t, repo.CreateAuditEntry(ctx, fixtures.AuditEntry(func(e *models.AuditEntry) {
		e.User = "bob"
		e.Action = "post"
		e.Result = models.AuditDenied
		e.Reason = testutil.StringPtr("amount exceeds posting limit")
	})))
	require.NoError(t, repo.CreateAuditEntry(ctx, fixtures.AuditEntry(func(e *models.AuditEntry) {
		e.Result = models.AuditRequestedApproval
		e.RuleID = "gate-submit"
	})))

	denied := models.AuditDenied
	entries, total, err := repo.ListAuditEntries(ctx, &postgres.AuditFilters{Result: &denied}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].User)

	entries, total, err = repo.ListAuditEntries(ctx, &postgres.AuditFilters{User: testutil.StringPtr("alice")}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)

	entries, total, err = repo.ListAuditEntries(ctx, &postgres.AuditFilters{RuleID: testutil.StringPtr("gate-submit")}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditRequestedApproval, entries[0].Result)
}

func TestAuditRepository_NewestFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite := SetupSuite(t)
	defer TeardownSuite(t)
	suite.ResetDatabase(t)

	ctx := suite.GetContext(t)
	repo := postgres.NewAuditRepository(suite.DB.DB)

	fixtures := testutil.NewFixtureBuilder()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateAuditEntry(ctx, fixtures.AuditEntry(func(e *models.AuditEntry) {
			e.Timestamp = ts
		})))
	}

	entries, _, err := repo.ListAuditEntries(ctx, nil, 20, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
	assert.True(t, entries[1].Timestamp.After(entries[2].Timestamp))
}
