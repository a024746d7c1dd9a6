package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeframe-be/internal/apperr"
	"codeframe-be/internal/dto"
	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/memory"
)

func newTestGenerationService(st *fakeStore, pub *recordingPublisher, cancel ICancelStore) IGenerationService {
	return NewGenerationService(
		&fakeFactory{st: st},
		pub,
		cancel,
		memory.NewRunRegistry(),
		nil,
		pipelineTestConfig(),
		nopLogger{},
	)
}

func seedCategory(st *fakeStore) entity.Category {
	category := entity.Category{Id: uuid.New(), Name: "Churn reasons"}
	st.categories = append(st.categories, category)
	st.answers = append(st.answers, entity.Answer{
		Id:         uuid.New(),
		CategoryId: category.Id,
		Text:       "price went up again",
	})
	return category
}

func TestStartGenerationQueuesRunAndPublishesJob(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	pub := &recordingPublisher{}
	svc := newTestGenerationService(st, pub, newMemCancelStore())

	resp, err := svc.StartGeneration(context.Background(), &dto.StartGenerationRequest{
		CategoryId: category.Id,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusQueued, resp.Status)

	require.Len(t, st.runs, 1)
	run := st.runs[0]
	assert.Equal(t, resp.Id, run.Id)
	assert.Equal(t, category.Id, run.CategoryId)
	// deployment defaults fill the config when the request omits it
	assert.Equal(t, 5, run.Config.MinClusterSize)
	assert.Equal(t, "en", run.Config.Language)

	require.Len(t, pub.payloads, 1)
	var msg dto.PublishGenerateCodeframeMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, run.Id, msg.GenerationId)
}

func TestStartGenerationConfigOverrides(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	svc := newTestGenerationService(st, &recordingPublisher{}, newMemCancelStore())

	resp, err := svc.StartGeneration(context.Background(), &dto.StartGenerationRequest{
		CategoryId: category.Id,
		Config: &dto.GenerationConfigRequest{
			MinClusterSize: 8,
			MaxDepth:       2,
			Language:       "id",
		},
	})
	require.NoError(t, err)

	run := st.runs[0]
	assert.Equal(t, resp.Id, run.Id)
	assert.Equal(t, 8, run.Config.MinClusterSize)
	assert.Equal(t, 2, run.Config.MaxDepth)
	assert.Equal(t, "id", run.Config.Language)
	// untouched fields keep the defaults
	assert.Equal(t, 3, run.Config.MinSamples)
}

func TestStartGenerationRejectsBadConfig(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	svc := newTestGenerationService(st, &recordingPublisher{}, newMemCancelStore())

	cases := []dto.GenerationConfigRequest{
		{MinClusterSize: 1},
		{MinSamples: 9}, // above the default min_cluster_size of 5
		{MaxDepth: 4},
		{ExemplarsPerCluster: -1},
	}
	for _, cfg := range cases {
		cfg := cfg
		_, err := svc.StartGeneration(context.Background(), &dto.StartGenerationRequest{
			CategoryId: category.Id,
			Config:     &cfg,
		})
		assert.True(t, errors.Is(err, apperr.ErrInvalidConfig), "config %+v should be rejected", cfg)
	}
	assert.Empty(t, st.runs)
}

func TestStartGenerationUnknownCategory(t *testing.T) {
	svc := newTestGenerationService(newFakeStore(), &recordingPublisher{}, newMemCancelStore())

	_, err := svc.StartGeneration(context.Background(), &dto.StartGenerationRequest{
		CategoryId: uuid.New(),
	})
	assert.True(t, errors.Is(err, apperr.ErrCategoryNotFound))
}

func TestStartGenerationEmptyCategoryRejected(t *testing.T) {
	st := newFakeStore()
	category := entity.Category{Id: uuid.New(), Name: "Empty survey"}
	st.categories = append(st.categories, category)
	pub := &recordingPublisher{}
	svc := newTestGenerationService(st, pub, newMemCancelStore())

	_, err := svc.StartGeneration(context.Background(), &dto.StartGenerationRequest{
		CategoryId: category.Id,
	})
	assert.True(t, errors.Is(err, apperr.ErrInvalidConfig))

	// nothing queued, nothing published
	assert.Empty(t, st.runs)
	assert.Empty(t, pub.payloads)
}

func TestStartGenerationPublishFailureFailsRun(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestGenerationService(st, pub, newMemCancelStore())

	_, err := svc.StartGeneration(context.Background(), &dto.StartGenerationRequest{
		CategoryId: category.Id,
	})
	require.Error(t, err)

	require.Len(t, st.runs, 1)
	run := st.runs[0]
	assert.Equal(t, entity.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorDetail, "broker down")
	// failure is reached through running, so both timestamps are set
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.CompletedAt)
}

func TestGetStatusUnknownRun(t *testing.T) {
	svc := newTestGenerationService(newFakeStore(), &recordingPublisher{}, newMemCancelStore())

	_, err := svc.GetStatus(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrRunNotFound))
}

func TestGetStatusMapsRunFields(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	score := 85
	st.runs = append(st.runs, entity.GenerationRun{
		Id:                uuid.New(),
		CategoryId:        category.Id,
		Status:            entity.RunStatusCompleted,
		ClustersTotal:     4,
		ClustersCompleted: 3,
		ClustersFailed:    1,
		TokensUsed:        1200,
		CostUsd:           0.0024,
		MeceScore:         &score,
		ErrorDetail:       "1 of 4 clusters failed generation",
	})
	svc := newTestGenerationService(st, &recordingPublisher{}, newMemCancelStore())

	resp, err := svc.GetStatus(context.Background(), st.runs[0].Id)
	require.NoError(t, err)

	assert.Equal(t, entity.RunStatusCompleted, resp.Status)
	assert.Equal(t, 4, resp.Progress.ClustersTotal)
	assert.Equal(t, 3, resp.Progress.ClustersCompleted)
	assert.Equal(t, 1, resp.Progress.ClustersFailed)
	assert.Equal(t, int64(1200), resp.TokensUsed)
	require.NotNil(t, resp.MeceScore)
	assert.Equal(t, 85, *resp.MeceScore)
	assert.Equal(t, "1 of 4 clusters failed generation", resp.ErrorDetail)
}

func TestListRunsScopedToCategory(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	other := seedCategory(st)
	st.runs = append(st.runs,
		entity.GenerationRun{Id: uuid.New(), CategoryId: category.Id, Status: entity.RunStatusCompleted},
		entity.GenerationRun{Id: uuid.New(), CategoryId: category.Id, Status: entity.RunStatusFailed},
		entity.GenerationRun{Id: uuid.New(), CategoryId: other.Id, Status: entity.RunStatusQueued},
	)
	svc := newTestGenerationService(st, &recordingPublisher{}, newMemCancelStore())

	resp, err := svc.ListRuns(context.Background(), category.Id, nil)
	require.NoError(t, err)

	assert.Equal(t, category.Id, resp.CategoryId)
	require.Len(t, resp.Runs, 2)
	for _, r := range resp.Runs {
		assert.Equal(t, category.Id, r.CategoryId)
	}

	filtered, err := svc.ListRuns(context.Background(), category.Id, &dto.ListRunsRequest{Status: entity.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, filtered.Runs, 1)
	assert.Equal(t, entity.RunStatusFailed, filtered.Runs[0].Status)
}

func TestListRunsUnknownCategory(t *testing.T) {
	svc := newTestGenerationService(newFakeStore(), &recordingPublisher{}, newMemCancelStore())

	_, err := svc.ListRuns(context.Background(), uuid.New(), nil)
	assert.True(t, errors.Is(err, apperr.ErrCategoryNotFound))
}

func TestCancelQueuedRunCancelsImmediately(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	st.runs = append(st.runs, entity.GenerationRun{
		Id:         uuid.New(),
		CategoryId: category.Id,
		Status:     entity.RunStatusQueued,
	})
	cancel := newMemCancelStore()
	svc := newTestGenerationService(st, &recordingPublisher{}, cancel)

	resp, err := svc.CancelGeneration(context.Background(), st.runs[0].Id)
	require.NoError(t, err)

	assert.Equal(t, entity.RunStatusCancelled, resp.Status)
	assert.Equal(t, entity.RunStatusCancelled, st.runs[0].Status)
	assert.NotNil(t, st.runs[0].CompletedAt)
}

func TestCancelRunningRunOnlySetsFlag(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	st.runs = append(st.runs, entity.GenerationRun{
		Id:         uuid.New(),
		CategoryId: category.Id,
		Status:     entity.RunStatusRunning,
	})
	cancel := newMemCancelStore()
	svc := newTestGenerationService(st, &recordingPublisher{}, cancel)

	resp, err := svc.CancelGeneration(context.Background(), st.runs[0].Id)
	require.NoError(t, err)

	// the worker owns the terminal transition; the caller sees the run
	// still running with the flag raised
	assert.Equal(t, entity.RunStatusRunning, resp.Status)
	assert.Equal(t, entity.RunStatusRunning, st.runs[0].Status)

	flagged, err := cancel.IsCancelRequested(context.Background(), st.runs[0].Id)
	require.NoError(t, err)
	assert.True(t, flagged)
}

func TestCancelFinishedRunRejected(t *testing.T) {
	st := newFakeStore()
	category := seedCategory(st)
	st.runs = append(st.runs, entity.GenerationRun{
		Id:         uuid.New(),
		CategoryId: category.Id,
		Status:     entity.RunStatusCompleted,
	})
	svc := newTestGenerationService(st, &recordingPublisher{}, newMemCancelStore())

	_, err := svc.CancelGeneration(context.Background(), st.runs[0].Id)
	assert.True(t, errors.Is(err, apperr.ErrRunFinished))
}

func TestCancelUnknownRun(t *testing.T) {
	svc := newTestGenerationService(newFakeStore(), &recordingPublisher{}, newMemCancelStore())

	_, err := svc.CancelGeneration(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrRunNotFound))
}
