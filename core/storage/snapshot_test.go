package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"table-sync/core/reconcile"
	"table-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func objects(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func TestSnapshotArchiver_Archive(t *testing.T) {
	client := new(mocks.Client)
	archiver := NewSnapshotArchiver(client, "table-sync", "/snapshots/", 0)
	archiver.now = func() time.Time { return time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC) }

	var uploaded []byte
	client.On("PutObject", mock.Anything, "table-sync",
		"snapshots/items/doc_Items/20240304T050607.000Z.json",
		mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(minio.UploadInfo{}, nil)

	rows := []reconcile.Row{{ID: "i-1", Link: "https://doc/r1", Cells: map[string]any{"Name": "A"}}}
	require.NoError(t, archiver.Archive(context.Background(), "items", "doc/Items", rows))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(uploaded, &snap))
	assert.Equal(t, "items", snap.Pipeline)
	assert.Equal(t, "doc/Items", snap.Table)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "i-1", snap.Rows[0].ID)
	client.AssertExpectations(t)
}

func TestSnapshotArchiver_ArchivePrunes(t *testing.T) {
	client := new(mocks.Client)
	archiver := NewSnapshotArchiver(client, "b", "", 2)

	client.On("PutObject", mock.Anything, "b", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)
	client.On("ListObjects", mock.Anything, "b", minio.ListObjectsOptions{Prefix: "items/sheet_Items/", Recursive: true}).
		Return(objects("items/sheet_Items/3.json", "items/sheet_Items/1.json", "items/sheet_Items/2.json"))

	var removed []string
	client.On("RemoveObjects", mock.Anything, "b", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			for obj := range args.Get(2).(<-chan minio.ObjectInfo) {
				removed = append(removed, obj.Key)
			}
		}).
		Return(nil)

	require.NoError(t, archiver.Archive(context.Background(), "items", "sheet Items", nil))
	assert.Equal(t, []string{"items/sheet_Items/1.json"}, removed)
}

func TestSnapshotArchiver_PruneReportsEveryFailure(t *testing.T) {
	client := new(mocks.Client)
	archiver := NewSnapshotArchiver(client, "b", "", 1)

	client.On("ListObjects", mock.Anything, "b", mock.Anything).
		Return(objects("items/t/1.json", "items/t/2.json", "items/t/3.json"))

	failures := make(chan minio.RemoveObjectError, 2)
	failures <- minio.RemoveObjectError{ObjectName: "items/t/1.json", Err: errors.New("access denied")}
	failures <- minio.RemoveObjectError{ObjectName: "items/t/2.json", Err: errors.New("slow down")}
	close(failures)
	client.On("RemoveObjects", mock.Anything, "b", mock.Anything, mock.Anything).
		Return((<-chan minio.RemoveObjectError)(failures))

	err := archiver.Prune(context.Background(), "items", "t", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove snapshot items/t/1.json: access denied")
	assert.Contains(t, err.Error(), "failed to remove snapshot items/t/2.json: slow down")
	assert.Empty(t, failures)
}

func TestSnapshotArchiver_ArchiveUploadError(t *testing.T) {
	client := new(mocks.Client)
	archiver := NewSnapshotArchiver(client, "b", "p", 0)
	client.On("PutObject", mock.Anything, "b", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))

	err := archiver.Archive(context.Background(), "items", "t", nil)
	assert.ErrorContains(t, err, "access denied")
}

func TestSnapshotArchiver_Latest(t *testing.T) {
	client := new(mocks.Client)
	archiver := NewSnapshotArchiver(client, "b", "p", 0)

	client.On("ListObjects", mock.Anything, "b", mock.Anything).
		Return(objects("p/items/t/20240101T000000.000Z.json", "p/items/t/20240102T000000.000Z.json"))
	body, _ := json.Marshal(Snapshot{Pipeline: "items", Table: "t", Rows: []reconcile.Row{{ID: "x"}}})
	client.On("GetObject", mock.Anything, "b", "p/items/t/20240102T000000.000Z.json", mock.Anything).
		Return(io.NopCloser(bytes.NewReader(body)), nil)

	snap, err := archiver.Latest(context.Background(), "items", "t")
	require.NoError(t, err)
	assert.Equal(t, "x", snap.Rows[0].ID)
}

func TestSnapshotArchiver_EnsureBucket(t *testing.T) {
	client := new(mocks.Client)
	archiver := NewSnapshotArchiver(client, "b", "", 0)
	client.On("BucketExists", mock.Anything, "b").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "b", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

	require.NoError(t, archiver.EnsureBucket(context.Background(), "eu-west-1"))
	client.AssertExpectations(t)
}
