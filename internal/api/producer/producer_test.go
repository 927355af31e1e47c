package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nqhuy/render-be/internal/api/domain"
	"github.com/nqhuy/render-be/internal/api/model"
	"github.com/nqhuy/render-be/shared/logger"
)

type fakeStorage struct {
	assets map[string]*model.Asset
	jobs   map[string]*model.Job

	createJobErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		assets: map[string]*model.Asset{},
		jobs:   map[string]*model.Job{},
	}
}

func (s *fakeStorage) GetAsset(_ context.Context, assetID string) (*model.Asset, error) {
	asset, ok := s.assets[assetID]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return asset, nil
}

func (s *fakeStorage) CreateJob(_ context.Context, job *model.Job) error {
	if s.createJobErr != nil {
		return s.createJobErr
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

type fakePublisher struct {
	published [][]byte
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, body []byte, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, body)
	return nil
}

func TestEnqueueRender_Success(t *testing.T) {
	storage := newFakeStorage()
	storage.assets["a1"] = &model.Asset{
		ID:        "a1",
		ProjectID: "p1",
		S3Path:    "projects/p1/assets/in.mp4",
	}
	publisher := &fakePublisher{}

	p := NewProducer(storage, publisher, logger.NewDefault().Logger)

	job, err := p.EnqueueRender(context.Background(), "p1", "a1")
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.NotEmpty(t, job.ID)
	assert.Contains(t, storage.jobs, job.ID)

	require.Len(t, publisher.published, 1)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
	assert.Equal(t, job.ID, msg["jobId"])
	assert.Equal(t, "projects/p1/assets/in.mp4", msg["assetPath"])
	assert.Equal(t, "p1", msg["projectId"])
}

func TestEnqueueRender_AssetValidation(t *testing.T) {
	storage := newFakeStorage()
	storage.assets["a1"] = &model.Asset{ID: "a1", ProjectID: "p1", S3Path: "x"}

	p := NewProducer(storage, &fakePublisher{}, logger.NewDefault().Logger)

	t.Run("unknown asset", func(t *testing.T) {
		_, err := p.EnqueueRender(context.Background(), "p1", "nope")
		require.ErrorIs(t, err, domain.ErrAssetNotFound)
		assert.Empty(t, storage.jobs)
	})

	t.Run("asset belongs to another project", func(t *testing.T) {
		_, err := p.EnqueueRender(context.Background(), "p2", "a1")
		require.ErrorIs(t, err, domain.ErrAssetNotFound)
		assert.Empty(t, storage.jobs)
	})
}

func TestEnqueueRender_PublishFailureLeavesJobPending(t *testing.T) {
	storage := newFakeStorage()
	storage.assets["a1"] = &model.Asset{ID: "a1", ProjectID: "p1", S3Path: "x"}
	publisher := &fakePublisher{err: errors.New("broker unavailable")}

	p := NewProducer(storage, publisher, logger.NewDefault().Logger)

	job, err := p.EnqueueRender(context.Background(), "p1", "a1")
	require.ErrorIs(t, err, ErrEnqueueFailed)

	// The job row was committed before the publish and stays PENDING.
	require.NotNil(t, job)
	stored, ok := storage.jobs[job.ID]
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusPending, stored.Status)
}

func TestEnqueueRender_CreateJobFailure(t *testing.T) {
	storage := newFakeStorage()
	storage.assets["a1"] = &model.Asset{ID: "a1", ProjectID: "p1", S3Path: "x"}
	storage.createJobErr = errors.New("db down")
	publisher := &fakePublisher{}

	p := NewProducer(storage, publisher, logger.NewDefault().Logger)

	_, err := p.EnqueueRender(context.Background(), "p1", "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEnqueueFailed)
	assert.Empty(t, publisher.published, "nothing must be published when the job commit fails")
}
