package checks

import (
	"context"
	"errors"
	"testing"

	"treesync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Bucket Missing", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "treesync").Return(false, nil)

		report, err := CheckBucket(ctx, mockClient, "treesync", "")
		require.NoError(t, err)
		assert.False(t, report.Exists)
		mockClient.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Counts Roots", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "treesync").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "treesync", mock.MatchedBy(func(o minio.ListObjectsOptions) bool {
			return o.Prefix == "team/"
		})).Return(mocks.Objects(
			minio.ObjectInfo{Key: "team/Docs/"},
			minio.ObjectInfo{Key: "team/Photos/"},
			minio.ObjectInfo{Key: "team/readme.txt"},
		))

		report, err := CheckBucket(ctx, mockClient, "treesync", "team")
		require.NoError(t, err)
		assert.True(t, report.Exists)
		assert.Equal(t, 2, report.Roots)
		mockClient.AssertExpectations(t)
	})

	t.Run("Listing Error", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "treesync").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "treesync", mock.Anything).
			Return(mocks.Objects(minio.ObjectInfo{Err: errors.New("denied")}))

		_, err := CheckBucket(ctx, mockClient, "treesync", "")
		assert.Error(t, err)
	})

	t.Run("Exists Error", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "treesync").Return(false, errors.New("unreachable"))

		_, err := CheckBucket(ctx, mockClient, "treesync", "")
		assert.ErrorContains(t, err, "unreachable")
	})
}

func TestFixBucket(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("MakeBucket", mock.Anything, "treesync", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

	err := FixBucket(context.Background(), mockClient, "treesync", "eu-west-1", zap.NewNop())
	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}
