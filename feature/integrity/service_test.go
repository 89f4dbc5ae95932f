package integrity

import (
	"context"
	"testing"

	"treesync/core/database"
	"treesync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *mocks.Client, afero.Fs) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	mockClient := new(mocks.Client)
	fsys := afero.NewMemMapFs()
	svc := NewService(Options{
		DB:        db,
		Client:    mockClient,
		Bucket:    "test-bucket",
		Fs:        fsys,
		LocalPath: "/sync",
	}, zap.NewNop())
	return svc, mockClient, fsys
}

func TestService_CheckAll(t *testing.T) {
	svc, mockClient, _ := newTestService(t)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil)

	report := svc.CheckAll(context.Background(), false)
	assert.False(t, report.Healthy)
	assert.Nil(t, report.Errors)
	assert.False(t, report.Store.Matched)
	assert.False(t, report.Bucket.Exists)
	assert.False(t, report.Local.Exists)
}

func TestService_CheckAllFix(t *testing.T) {
	svc, mockClient, fsys := newTestService(t)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil).Once()
	mockClient.On("MakeBucket", mock.Anything, "test-bucket", mock.Anything).Return(nil)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil)
	mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).
		Return(mocks.Objects(minio.ObjectInfo{Key: "Docs/"}))

	report := svc.CheckAll(context.Background(), true)
	assert.True(t, report.Healthy)
	assert.True(t, report.Store.Matched)
	assert.Equal(t, 1, report.Bucket.Roots)

	ok, err := afero.DirExists(fsys, "/sync")
	require.NoError(t, err)
	assert.True(t, ok)
	mockClient.AssertExpectations(t)
}

func TestService_NotConfigured(t *testing.T) {
	svc := NewService(Options{}, zap.NewNop())

	report := svc.CheckAll(context.Background(), true)
	assert.False(t, report.Healthy)
	assert.Contains(t, report.Errors, "store")
	assert.Contains(t, report.Errors, "bucket")
	assert.Contains(t, report.Errors, "local")
}
