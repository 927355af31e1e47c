package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nqhuy/render-be/internal/api/domain"
	"github.com/nqhuy/render-be/internal/api/model"
	"github.com/nqhuy/render-be/internal/api/producer"
	"github.com/nqhuy/render-be/shared/logger"
)

type fakeStorage struct {
	jobs map[string]*model.Job
}

func (s *fakeStorage) CreateProject(context.Context, *model.Project) error { return nil }

func (s *fakeStorage) CreateAsset(context.Context, *model.Asset) error { return nil }

func (s *fakeStorage) CreateAnalyticsEvent(context.Context, *model.AnalyticsEvent) error {
	return nil
}

func (s *fakeStorage) GetJobByID(_ context.Context, jobID string) (*model.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

type fakeProducer struct {
	job *model.Job
	err error
}

func (p *fakeProducer) EnqueueRender(context.Context, string, string) (*model.Job, error) {
	return p.job, p.err
}

type fakeUploader struct{}

func (fakeUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://assets.test/" + key, nil
}

func newTestRouter(storage Storage, prod RenderProducer) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&Dependencies{
		Logger:   logger.NewDefault().Logger,
		Storage:  storage,
		Uploader: fakeUploader{},
		Producer: prod,
	})

	r := gin.New()
	r.GET("/api/v1/jobs/:job_id", h.GetJob)
	r.POST("/api/v1/projects/:project_id/render", h.EnqueueRender)
	return r
}

const (
	testJobID     = "123e4567-e89b-12d3-a456-426614174003"
	testProjectID = "123e4567-e89b-12d3-a456-426614174000"
)

func TestGetJob(t *testing.T) {
	outputURL := "https://assets.test/projects/rendered/out.mp4"
	errDetail := "ffmpeg failed: moov atom not found"

	tests := []struct {
		name       string
		job        *model.Job
		path       string
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name: "done job carries output url only",
			job: &model.Job{
				ID:        testJobID,
				Status:    domain.JobStatusDone,
				Attempts:  1,
				OutputURL: &outputURL,
			},
			path:       "/api/v1/jobs/" + testJobID,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "DONE", body["status"])
				assert.Equal(t, outputURL, body["output_url"])
				assert.NotContains(t, body, "error")
				assert.Equal(t, float64(1), body["attempts"])
			},
		},
		{
			name: "failed job carries error only",
			job: &model.Job{
				ID:       testJobID,
				Status:   domain.JobStatusFailed,
				Attempts: 1,
				Error:    &errDetail,
			},
			path:       "/api/v1/jobs/" + testJobID,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "FAILED", body["status"])
				assert.Equal(t, errDetail, body["error"])
				assert.NotContains(t, body, "output_url")
			},
		},
		{
			name:       "unknown job",
			path:       "/api/v1/jobs/" + testProjectID,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid job id",
			path:       "/api/v1/jobs/not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{jobs: map[string]*model.Job{}}
			if tt.job != nil {
				storage.jobs[tt.job.ID] = tt.job
			}

			r := newTestRouter(storage, &fakeProducer{})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)

			if tt.check != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				tt.check(t, body)
			}
		})
	}
}

func TestEnqueueRender(t *testing.T) {
	tests := []struct {
		name       string
		producer   *fakeProducer
		body       string
		wantStatus int
	}{
		{
			name:       "accepted",
			producer:   &fakeProducer{job: &model.Job{ID: testJobID, Status: domain.JobStatusPending}},
			body:       `{"asset_id":"a1"}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "asset not found",
			producer:   &fakeProducer{err: domain.ErrAssetNotFound},
			body:       `{"asset_id":"a1"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "broker down maps to bad gateway",
			producer: &fakeProducer{
				job: &model.Job{ID: testJobID, Status: domain.JobStatusPending},
				err: producer.ErrEnqueueFailed,
			},
			body:       `{"asset_id":"a1"}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "storage error",
			producer:   &fakeProducer{err: errors.New("db down")},
			body:       `{"asset_id":"a1"}`,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "missing asset id",
			producer:   &fakeProducer{},
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeStorage{jobs: map[string]*model.Job{}}, tt.producer)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+testProjectID+"/render", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
