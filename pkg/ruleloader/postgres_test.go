package ruleloader_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compareguard/ruleanalyzer/pkg/ruleloader"
)

func TestPostgresRegistry_Init(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rule_file_versions").WillReturnResult(sqlmock.NewResult(0, 0))

	reg := ruleloader.NewPostgresRegistry(db, "endpoint")
	require.NoError(t, reg.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistry_Publish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO rule_file_versions").
		WithArgs("endpoint", "1.0.0", []byte("rules"), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	reg := ruleloader.NewPostgresRegistry(db, "endpoint")
	require.NoError(t, reg.Publish(context.Background(), "1.0.0", []byte("rules")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistry_PublishRejectsInvalidVersion(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := ruleloader.NewPostgresRegistry(db, "endpoint")
	assert.Error(t, reg.Publish(context.Background(), "not-semver", []byte("rules")))
}

func TestPostgresRegistry_LoadReturnsHighestSemver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"version", "content"}).
		AddRow("1.0.0", []byte("old")).
		AddRow("2.0.0", []byte("new")).
		AddRow("1.5.0", []byte("mid"))
	mock.ExpectQuery("SELECT version, content FROM rule_file_versions").
		WithArgs("endpoint").
		WillReturnRows(rows)

	reg := ruleloader.NewPostgresRegistry(db, "endpoint")
	content, err := reg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistry_LoadNoVersionsIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"version", "content"})
	mock.ExpectQuery("SELECT version, content FROM rule_file_versions").
		WithArgs("endpoint").
		WillReturnRows(rows)

	reg := ruleloader.NewPostgresRegistry(db, "endpoint")
	_, err = reg.Load(context.Background())
	assert.ErrorIs(t, err, ruleloader.ErrCatalogNotFound)
}
