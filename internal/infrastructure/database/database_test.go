package database

import (
	"testing"

	"portfolio-registry/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost:5432/registry"))
	assert.True(t, IsPostgres("postgresql://localhost/registry"))
	assert.True(t, IsPostgres("host=localhost user=u dbname=registry"))
	assert.False(t, IsPostgres(":memory:"))
	assert.False(t, IsPostgres("registry.db"))
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"Portfolios", "PortfolioAssets", "UserPortfolios", "ProtocolState"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	row := domain.UserPortfolios{Owner: "SP1OWNER", PortfolioIDs: domain.PortfolioIDs{1, 2, 3}}
	require.NoError(t, db.Create(&row).Error)

	var got domain.UserPortfolios
	require.NoError(t, db.Where("owner = ?", "SP1OWNER").First(&got).Error)
	assert.Equal(t, domain.PortfolioIDs{1, 2, 3}, got.PortfolioIDs)
}
