package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianerp/policyflow/pkg/testutil"
)

// IntegrationSuite holds the test suite configuration
type IntegrationSuite struct {
	DB   *testutil.TestDB
	Pool *pgxpool.Pool
}

var suite *IntegrationSuite

// TestMain gates the suite behind a running local postgres
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		fmt.Println("Skipping integration tests. Set INTEGRATION_TESTS=1 to run.")
		os.Exit(0)
	}

	os.Exit(m.Run())
}

// SetupSuite initializes the test suite
func SetupSuite(t *testing.T) *IntegrationSuite {
	t.Helper()

	if suite != nil {
		return suite
	}

	db := testutil.SetupTestDB(t)
	testutil.RunMigrations(t, db, "../../migrations")

	suite = &IntegrationSuite{
		DB:   db,
		Pool: db.Pool,
	}

	return suite
}

// TeardownSuite cleans up the test suite
func TeardownSuite(t *testing.T) {
	t.Helper()

	if suite != nil && suite.DB != nil {
		suite.DB.Teardown()
		suite = nil
	}
}

// ResetDatabase truncates all tables
func (s *IntegrationSuite) ResetDatabase(t *testing.T) {
	t.Helper()

	s.DB.Truncate("audit_log", "rule_sets", "documents")
}

// GetContext returns a context for testing
func (s *IntegrationSuite) GetContext(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}
