package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeframe-be/internal/config"
	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/memory"
	"codeframe-be/pkg/mece"
)

func pipelineTestConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MinClusterSize:      5,
		MinSamples:          3,
		MaxDepth:            3,
		ExemplarsPerCluster: 12,
		GenerationWorkers:   2,
		Eps:                 0.35,
		ConfidenceThreshold: 0.7,
		JobTopic:            "GENERATE_CODEFRAME",
	}
}

func newTestConsumer(st *fakeStore, emb Embedder, gen ClusterGenerator, cancel ICancelStore) *consumerService {
	svc := NewConsumerService(
		nil,
		"GENERATE_CODEFRAME",
		&fakeFactory{st: st},
		emb,
		gen,
		cancel,
		memory.NewRunRegistry(),
		nil,
		pipelineTestConfig(),
		mece.DefaultPolicy(),
		0.002,
		nopLogger{},
	)
	return svc.(*consumerService)
}

// seedRun creates a category, n price answers plus m support answers and a
// queued run over them.
func seedRun(st *fakeStore, nPrice, nSupport int) *entity.GenerationRun {
	category := entity.Category{Id: uuid.New(), Name: "Churn reasons"}
	st.categories = append(st.categories, category)

	for i := 0; i < nPrice; i++ {
		st.answers = append(st.answers, entity.Answer{
			Id:         uuid.New(),
			CategoryId: category.Id,
			Text:       fmt.Sprintf("the price is way too high, variant %d", i),
		})
	}
	for i := 0; i < nSupport; i++ {
		st.answers = append(st.answers, entity.Answer{
			Id:         uuid.New(),
			CategoryId: category.Id,
			Text:       fmt.Sprintf("support never answered my ticket, variant %d", i),
		})
	}

	run := entity.GenerationRun{
		Id:         uuid.New(),
		CategoryId: category.Id,
		Status:     entity.RunStatusQueued,
		Config: entity.GenerationConfig{
			MinClusterSize:      5,
			MinSamples:          3,
			MaxDepth:            3,
			ExemplarsPerCluster: 12,
			Language:            "en",
		},
	}
	st.runs = append(st.runs, run)
	return &st.runs[len(st.runs)-1]
}

func findRun(st *fakeStore, id uuid.UUID) *entity.GenerationRun {
	for i := range st.runs {
		if st.runs[i].Id == id {
			return &st.runs[i]
		}
	}
	return nil
}

func TestProcessRunHappyPath(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 6, 6)
	gen := &scriptedGenerator{}
	cs := newTestConsumer(st, &keywordEmbedder{}, gen, newMemCancelStore())

	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusCompleted, got.Status)
	assert.Equal(t, 2, got.ClustersTotal)
	assert.Equal(t, 2, got.ClustersCompleted)
	assert.Equal(t, 0, got.ClustersFailed)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, 2, gen.Calls())

	assert.Equal(t, int64(200), got.TokensUsed)
	assert.InDelta(t, 0.0004, got.CostUsd, 1e-9)

	require.Len(t, st.clusters, 2)
	for _, cr := range st.clusters {
		assert.Equal(t, entity.ClusterStatusDone, cr.Status)
		assert.Len(t, cr.MemberIds, 6)
		assert.False(t, cr.IsOutlierBucket())
	}

	// 2 themes with 2 codes each
	themes := 0
	codes := 0
	for _, n := range st.nodes {
		switch n.Level {
		case entity.NodeLevelTheme:
			themes++
			assert.Nil(t, n.ParentId)
			assert.Len(t, n.RepresentativeIds, entity.MaxRepresentatives)
		case entity.NodeLevelCode:
			codes++
			require.NotNil(t, n.ParentId)
			assert.NotEmpty(t, n.Embedding)
		}
	}
	assert.Equal(t, 2, themes)
	assert.Equal(t, 4, codes)

	// the two codes inside each theme share a keyword vector, so the
	// validator flags one error overlap per theme: 100 - 2*40
	require.NotNil(t, got.MeceScore)
	assert.Equal(t, 20, *got.MeceScore)
	assert.Len(t, got.MeceWarnings, 2)
	for _, w := range got.MeceWarnings {
		assert.Equal(t, mece.KindOverlap, w.Kind)
		assert.Equal(t, mece.SeverityError, w.Severity)
	}
}

func TestProcessRunPartialFailureCompletes(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 6, 6)
	gen := &scriptedGenerator{failFor: "support"}
	cs := newTestConsumer(st, &keywordEmbedder{}, gen, newMemCancelStore())

	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusCompleted, got.Status)
	assert.Equal(t, 1, got.ClustersCompleted)
	assert.Equal(t, 1, got.ClustersFailed)
	assert.Equal(t, "1 of 2 clusters failed generation", got.ErrorDetail)
	assert.Equal(t, int64(200), got.TokensUsed)

	failed := 0
	for _, cr := range st.clusters {
		if cr.Status == entity.ClusterStatusFailed {
			failed++
			assert.NotEmpty(t, cr.ErrorDetail)
		}
	}
	assert.Equal(t, 1, failed)

	// failed cluster members count as uncovered: 6 of 12 plus one code
	// overlap pair inside the surviving theme
	require.NotNil(t, got.MeceScore)
	assert.Equal(t, 10, *got.MeceScore)

	hasGap := false
	for _, w := range got.MeceWarnings {
		if w.Kind == mece.KindGap {
			hasGap = true
			assert.Equal(t, 6, w.Count)
		}
	}
	assert.True(t, hasGap)
}

func TestProcessRunAllClustersFailedFailsRun(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 6, 6)
	gen := &scriptedGenerator{failAll: true}
	cs := newTestConsumer(st, &keywordEmbedder{}, gen, newMemCancelStore())

	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusFailed, got.Status)
	assert.Contains(t, got.ErrorDetail, "all 2 clusters failed")
	assert.Empty(t, st.nodes)
}

func TestProcessRunEmbeddingFailureFailsRun(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 6, 6)
	gen := &scriptedGenerator{}
	cs := newTestConsumer(st, &keywordEmbedder{fail: true}, gen, newMemCancelStore())

	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusFailed, got.Status)
	assert.Contains(t, got.ErrorDetail, "embedding")
	assert.Zero(t, gen.Calls())
	assert.Empty(t, st.clusters)
}

func TestProcessRunSkipsRunCancelledBeforePickup(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 6, 6)
	run.Status = entity.RunStatusCancelled
	gen := &scriptedGenerator{}
	cs := newTestConsumer(st, &keywordEmbedder{}, gen, newMemCancelStore())

	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusCancelled, got.Status)
	assert.Zero(t, gen.Calls())
	assert.Empty(t, st.clusters)
	assert.Empty(t, st.nodes)
}

func TestProcessRunCancelMidGeneration(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 6, 6)
	cancelStore := newMemCancelStore()
	gen := &scriptedGenerator{}
	gen.beforeCall = func() {
		// a cancel arrives while the first cluster call is in flight
		_ = cancelStore.RequestCancel(context.Background(), run.Id)
	}

	cs := newTestConsumer(st, &keywordEmbedder{}, gen, cancelStore)
	cs.pipelineCfg.GenerationWorkers = 1

	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusCancelled, got.Status)
	assert.NotNil(t, got.CompletedAt)
	// the in-flight call finishes, the second cluster never starts
	assert.Equal(t, 1, gen.Calls())
	assert.Nil(t, got.MeceScore)

	flagged, err := cancelStore.IsCancelRequested(context.Background(), run.Id)
	require.NoError(t, err)
	assert.False(t, flagged, "flag should be cleared after the run settles")
}

func TestProcessRunAllOutliersCompletesWithGap(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 2, 1) // below min cluster size
	gen := &scriptedGenerator{}
	cs := newTestConsumer(st, &keywordEmbedder{}, gen, newMemCancelStore())

	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusCompleted, got.Status)
	assert.Equal(t, 0, got.ClustersTotal)
	assert.Zero(t, gen.Calls())

	require.Len(t, st.clusters, 1)
	assert.True(t, st.clusters[0].IsOutlierBucket())
	assert.Equal(t, entity.ClusterStatusDone, st.clusters[0].Status)
	assert.Len(t, st.clusters[0].MemberIds, 3)

	require.NotNil(t, got.MeceScore)
	assert.Equal(t, 0, *got.MeceScore)
	require.Len(t, got.MeceWarnings, 1)
	assert.Equal(t, mece.KindGap, got.MeceWarnings[0].Kind)
}

func TestProcessRunNoAnswersFailsRun(t *testing.T) {
	st := newFakeStore()
	run := seedRun(st, 0, 0)
	gen := &scriptedGenerator{}
	cs := newTestConsumer(st, &keywordEmbedder{}, gen, newMemCancelStore())

	// submission guards against empty categories, so an empty input set at
	// pickup is a fatal inconsistency rather than a clean result
	cs.ProcessRun(context.Background(), run.Id)

	got := findRun(st, run.Id)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusFailed, got.Status)
	assert.Contains(t, got.ErrorDetail, "no answers")
	assert.Zero(t, gen.Calls())
}
