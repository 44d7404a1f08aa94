package integration

import (
	"testing"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSetRepository_SaveAndGetActive(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite := SetupSuite(t)
	defer TeardownSuite(t)
	suite.ResetDatabase(t)

	ctx := suite.GetContext(t)
	repo := postgres.NewRuleSetRepository(suite.DB.DB)

	fixtures := testutil.NewFixtureBuilder()
	rules := models.RuleSet{*fixtures.Rule(), *fixtures.Rule(func(r *models.Rule) {
		r.When.KPIID = "purchase_post"
		r.Window = &models.Window{Days: []int{0, 1, 2, 3, 4}, Start: "09:00", End: "17:00"}
	})}

	version, err := repo.Save(ctx, rules, "admin")
	require.NoError(t, err)
	assert.Greater(t, version, int64(0))

	active, activeVersion, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, version, activeVersion)
	require.Len(t, active, 2)
	assert.Equal(t, rules[0].ID, active[0].ID)
	assert.Equal(t, "purchase_post", active[1].When.KPIID)
	require.NotNil(t, active[1].Window)
	assert.Equal(t, "09:00", active[1].Window.Start)
	require.NotNil(t, active[0].Approval)
	assert.True(t, active[0].Approval.Required)
}

func TestRuleSetRepository_NewestVersionWins(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite := SetupSuite(t)
	defer TeardownSuite(t)
	suite.ResetDatabase(t)

	ctx := suite.GetContext(t)
	repo := postgres.NewRuleSetRepository(suite.DB.DB)

	fixtures := testutil.NewFixtureBuilder()
	first, err := repo.Save(ctx, models.RuleSet{*fixtures.Rule()}, "admin")
	require.NoError(t, err)

	second, err := repo.Save(ctx, models.RuleSet{*fixtures.Rule(), *fixtures.Rule()}, "admin")
	require.NoError(t, err)
	assert.Greater(t, second, first)

	active, activeVersion, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, activeVersion)
	assert.Len(t, active, 2)
}

func TestRuleSetRepository_EmptyTable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite := SetupSuite(t)
	defer TeardownSuite(t)
	suite.ResetDatabase(t)

	ctx := suite.GetContext(t)
	repo := postgres.NewRuleSetRepository(suite.DB.DB)

	_, _, err := repo.GetActive(ctx)
	assert.ErrorIs(t, err, postgres.ErrNoRuleSet)
}
