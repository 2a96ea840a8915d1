package integrity

import (
	"context"
	"errors"
	"testing"

	"mlwh-sync/core/database"
	"mlwh-sync/core/qcstore"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/core/storage"
	"mlwh-sync/core/storage/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockDB creates a mock GORM DB for testing.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

// setupWarehouse creates an in-memory warehouse with a study table.
func setupWarehouse(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE study (id_study_tmp INTEGER PRIMARY KEY, id_study_lims TEXT)").Error)
	return db
}

var studyTable = []database.TableSpec{{Name: "study", Columns: []string{"id_study_tmp", "id_study_lims"}}}

type brokenStore struct{ reconcile.Store }

func (brokenStore) Lookup(context.Context, []reconcile.Key) (map[reconcile.Key]reconcile.Record, error) {
	return nil, errors.New("connection refused")
}

func TestService_CheckWarehouse(t *testing.T) {
	t.Run("Matched", func(t *testing.T) {
		svc := NewService(setupWarehouse(t), studyTable, nil, nil, nil)
		report, err := svc.CheckWarehouse()
		require.NoError(t, err)
		assert.True(t, report.Matched)
		require.Len(t, report.Tables, 1)
		assert.True(t, report.Tables[0].OK())
	})

	t.Run("Mismatch", func(t *testing.T) {
		tables := append(studyTable, database.TableSpec{Name: "sample", Columns: []string{"name"}})
		svc := NewService(setupWarehouse(t), tables, nil, nil, nil)
		report, err := svc.CheckWarehouse()
		require.NoError(t, err)
		assert.False(t, report.Matched)
		assert.False(t, report.Tables[1].Exists)
	})

	t.Run("QueryError", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		sqlMock.ExpectQuery("SHOW COLUMNS FROM `study`").WillReturnError(assert.AnError)

		report, err := NewService(db, studyTable, nil, nil, nil).CheckWarehouse()
		require.NoError(t, err)
		assert.False(t, report.Matched)
		assert.NotEmpty(t, report.Tables[0].Error)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("NotConfigured", func(t *testing.T) {
		_, err := NewService(nil, studyTable, nil, nil, nil).CheckWarehouse()
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestService_CheckTarget(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, NewService(nil, nil, qcstore.NewMemory(), nil, nil).CheckTarget(ctx))
	assert.ErrorContains(t, NewService(nil, nil, brokenStore{}, nil, nil).CheckTarget(ctx), "connection refused")
	assert.ErrorIs(t, NewService(nil, nil, nil, nil, nil).CheckTarget(ctx), ErrNotConfigured)
}

func TestService_CheckArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(true, nil)
		report, err := NewService(nil, nil, nil, storage.NewArchive(m, "reports", ""), nil).CheckArchive(ctx, true)
		require.NoError(t, err)
		assert.True(t, report.Exists)
		assert.False(t, report.Created)
		m.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingWithoutFix", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(false, nil)
		report, err := NewService(nil, nil, nil, storage.NewArchive(m, "reports", ""), nil).CheckArchive(ctx, false)
		require.NoError(t, err)
		assert.False(t, report.Exists)
	})

	t.Run("Fix", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(false, nil)
		m.On("MakeBucket", ctx, "reports", minio.MakeBucketOptions{}).Return(nil)
		report, err := NewService(nil, nil, nil, storage.NewArchive(m, "reports", ""), nil).CheckArchive(ctx, true)
		require.NoError(t, err)
		assert.True(t, report.Exists)
		assert.True(t, report.Created)
		m.AssertExpectations(t)
	})

	t.Run("Error", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(false, assert.AnError)
		_, err := NewService(nil, nil, nil, storage.NewArchive(m, "reports", ""), nil).CheckArchive(ctx, false)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestService_CheckAll(t *testing.T) {
	ctx := context.Background()

	t.Run("NothingConfigured", func(t *testing.T) {
		report := NewService(nil, nil, nil, nil, nil).CheckAll(ctx)
		assert.True(t, report.OK())
		assert.Equal(t, StatusSkipped, report.Warehouse.Status)
		assert.Equal(t, StatusSkipped, report.Target.Status)
		assert.Equal(t, StatusSkipped, report.Archive.Status)
	})

	t.Run("Healthy", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(true, nil)
		svc := NewService(setupWarehouse(t), studyTable, qcstore.NewMemory(), storage.NewArchive(m, "reports", ""), nil)

		report := svc.CheckAll(ctx)
		assert.True(t, report.OK())
		assert.Equal(t, StatusOK, report.Warehouse.Status)
		assert.Equal(t, StatusOK, report.Target.Status)
		assert.Equal(t, StatusOK, report.Archive.Status)
	})

	t.Run("Failures", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(false, nil)
		tables := []database.TableSpec{{Name: "iseq_flowcell", Columns: []string{"id_run"}}}
		svc := NewService(setupWarehouse(t), tables, brokenStore{}, storage.NewArchive(m, "reports", ""), nil)

		report := svc.CheckAll(ctx)
		assert.False(t, report.OK())
		assert.Equal(t, StatusError, report.Warehouse.Status)
		assert.Equal(t, StatusError, report.Target.Status)
		assert.Equal(t, "bucket does not exist", report.Archive.Error)
	})
}
