package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/contract"
	"codeframe-be/internal/repository/specification"
	"codeframe-be/internal/repository/unitofwork"
	"codeframe-be/pkg/codeframe"
)

// In-memory doubles for the persistence layer. They honor the same contract
// semantics the gorm implementations do (nil on miss, compare-and-set status
// moves, guarded code assignment) so the services can run unmodified.

type fakeStore struct {
	mu         sync.Mutex
	categories []entity.Category
	answers    []entity.Answer
	runs       []entity.GenerationRun
	clusters   []entity.ClusterResult
	nodes      []entity.HierarchyNode
	vectors    map[string][]float32
}

func newFakeStore() *fakeStore {
	return &fakeStore{vectors: map[string][]float32{}}
}

type fakeFactory struct {
	st *fakeStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{st: f.st}
}

type fakeUow struct {
	st *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) CategoryRepository() contract.CategoryRepository {
	return &fakeCategoryRepo{st: u.st}
}

func (u *fakeUow) AnswerRepository() contract.AnswerRepository {
	return &fakeAnswerRepo{st: u.st}
}

func (u *fakeUow) GenerationRunRepository() contract.GenerationRunRepository {
	return &fakeRunRepo{st: u.st}
}

func (u *fakeUow) ClusterResultRepository() contract.ClusterResultRepository {
	return &fakeClusterRepo{st: u.st}
}

func (u *fakeUow) HierarchyNodeRepository() contract.HierarchyNodeRepository {
	return &fakeNodeRepo{st: u.st}
}

func (u *fakeUow) EmbeddingCacheRepository() contract.EmbeddingCacheRepository {
	return &fakeCacheRepo{st: u.st}
}

type fakeCategoryRepo struct{ st *fakeStore }

func (r *fakeCategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.categories = append(r.st.categories, *category)
	return nil
}

func matchCategory(c entity.Category, specs []specification.Specification) bool {
	for _, spec := range specs {
		if s, ok := spec.(specification.ByID); ok && c.Id != s.ID {
			return false
		}
	}
	return true
}

func (r *fakeCategoryRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Category, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.categories {
		if matchCategory(r.st.categories[i], specs) {
			c := r.st.categories[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeCategoryRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Category, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []entity.Category
	for i := range r.st.categories {
		if matchCategory(r.st.categories[i], specs) {
			out = append(out, r.st.categories[i])
		}
	}
	return out, nil
}

type fakeAnswerRepo struct{ st *fakeStore }

func (r *fakeAnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.answers = append(r.st.answers, *answer)
	return nil
}

func matchAnswer(a entity.Answer, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if a.Id != s.ID {
				return false
			}
		case specification.ByCategoryId:
			if a.CategoryId != s.CategoryId {
				return false
			}
		case specification.Uncoded:
			if a.CodeNodeId != nil {
				return false
			}
		}
	}
	return true
}

func (r *fakeAnswerRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Answer, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.answers {
		if matchAnswer(r.st.answers[i], specs) {
			a := r.st.answers[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (r *fakeAnswerRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Answer, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []entity.Answer
	for i := range r.st.answers {
		if matchAnswer(r.st.answers[i], specs) {
			out = append(out, r.st.answers[i])
		}
	}
	return out, nil
}

func (r *fakeAnswerRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeAnswerRepo) AssignCode(ctx context.Context, answerId uuid.UUID, codeNodeId uuid.UUID, codeName string, codedAt time.Time) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.answers {
		a := &r.st.answers[i]
		if a.Id == answerId && a.CodeNodeId == nil {
			id := codeNodeId
			at := codedAt
			a.CodeNodeId = &id
			a.CodeName = codeName
			a.CodedAt = &at
			return true, nil
		}
	}
	return false, nil
}

type fakeRunRepo struct{ st *fakeStore }

func (r *fakeRunRepo) Create(ctx context.Context, run *entity.GenerationRun) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	run.CreatedAt = time.Now().UTC()
	r.st.runs = append(r.st.runs, *run)
	return nil
}

func (r *fakeRunRepo) Update(ctx context.Context, run *entity.GenerationRun) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.runs {
		if r.st.runs[i].Id == run.Id {
			// status and timestamps stay owned by TransitionStatus
			status := r.st.runs[i].Status
			started := r.st.runs[i].StartedAt
			completed := r.st.runs[i].CompletedAt
			r.st.runs[i] = *run
			r.st.runs[i].Status = status
			r.st.runs[i].StartedAt = started
			r.st.runs[i].CompletedAt = completed
			return nil
		}
	}
	return errors.New("run not found")
}

func matchRun(run entity.GenerationRun, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if run.Id != s.ID {
				return false
			}
		case specification.ByCategoryId:
			if run.CategoryId != s.CategoryId {
				return false
			}
		case specification.ByStatus:
			if run.Status != s.Status {
				return false
			}
		}
	}
	return true
}

func (r *fakeRunRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationRun, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.runs {
		if matchRun(r.st.runs[i], specs) {
			run := r.st.runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

func (r *fakeRunRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.GenerationRun, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []entity.GenerationRun
	for i := range r.st.runs {
		if matchRun(r.st.runs[i], specs) {
			out = append(out, r.st.runs[i])
		}
	}
	return out, nil
}

func (r *fakeRunRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	if !entity.CanTransition(from, to) {
		return false, nil
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.runs {
		run := &r.st.runs[i]
		if run.Id != id || run.Status != from {
			continue
		}
		run.Status = to
		now := time.Now().UTC()
		switch to {
		case entity.RunStatusRunning:
			run.StartedAt = &now
		case entity.RunStatusCompleted, entity.RunStatusFailed, entity.RunStatusCancelled:
			run.CompletedAt = &now
		}
		return true, nil
	}
	return false, nil
}

type fakeClusterRepo struct{ st *fakeStore }

func (r *fakeClusterRepo) CreateBatch(ctx context.Context, results []*entity.ClusterResult) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, res := range results {
		r.st.clusters = append(r.st.clusters, *res)
	}
	return nil
}

func (r *fakeClusterRepo) Update(ctx context.Context, result *entity.ClusterResult) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.clusters {
		if r.st.clusters[i].Id == result.Id {
			r.st.clusters[i] = *result
			return nil
		}
	}
	return errors.New("cluster result not found")
}

func matchCluster(cr entity.ClusterResult, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if cr.Id != s.ID {
				return false
			}
		case specification.ByGenerationId:
			if cr.GenerationId != s.GenerationId {
				return false
			}
		}
	}
	return true
}

func (r *fakeClusterRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ClusterResult, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.clusters {
		if matchCluster(r.st.clusters[i], specs) {
			cr := r.st.clusters[i]
			return &cr, nil
		}
	}
	return nil, nil
}

func (r *fakeClusterRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.ClusterResult, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []entity.ClusterResult
	for i := range r.st.clusters {
		if matchCluster(r.st.clusters[i], specs) {
			out = append(out, r.st.clusters[i])
		}
	}
	return out, nil
}

type fakeNodeRepo struct{ st *fakeStore }

func (r *fakeNodeRepo) Create(ctx context.Context, node *entity.HierarchyNode) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.nodes = append(r.st.nodes, *node)
	return nil
}

func (r *fakeNodeRepo) CreateBatch(ctx context.Context, nodes []*entity.HierarchyNode) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, n := range nodes {
		r.st.nodes = append(r.st.nodes, *n)
	}
	return nil
}

func (r *fakeNodeRepo) Update(ctx context.Context, node *entity.HierarchyNode) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.nodes {
		if r.st.nodes[i].Id == node.Id {
			r.st.nodes[i] = *node
			return nil
		}
	}
	return errors.New("node not found")
}

func (r *fakeNodeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteByIds(ctx, []uuid.UUID{id})
}

func (r *fakeNodeRepo) DeleteByIds(ctx context.Context, ids []uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	drop := map[uuid.UUID]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.st.nodes[:0]
	for _, n := range r.st.nodes {
		if !drop[n.Id] {
			kept = append(kept, n)
		}
	}
	r.st.nodes = kept
	return nil
}

func matchNode(n entity.HierarchyNode, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if n.Id != s.ID {
				return false
			}
		case specification.ByGenerationId:
			if n.GenerationId != s.GenerationId {
				return false
			}
		case specification.ByLevel:
			if n.Level != s.Level {
				return false
			}
		}
	}
	return true
}

func (r *fakeNodeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HierarchyNode, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i := range r.st.nodes {
		if matchNode(r.st.nodes[i], specs) {
			n := r.st.nodes[i]
			return &n, nil
		}
	}
	return nil, nil
}

func (r *fakeNodeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.HierarchyNode, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []entity.HierarchyNode
	for i := range r.st.nodes {
		if matchNode(r.st.nodes[i], specs) {
			out = append(out, r.st.nodes[i])
		}
	}
	return out, nil
}

type fakeCacheRepo struct{ st *fakeStore }

func (r *fakeCacheRepo) FindByHash(ctx context.Context, hash string) (*entity.EmbeddingCacheEntry, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if vec, ok := r.st.vectors[hash]; ok {
		return &entity.EmbeddingCacheEntry{ContentHash: hash, Vector: vec}, nil
	}
	return nil, nil
}

func (r *fakeCacheRepo) Save(ctx context.Context, entry *entity.EmbeddingCacheEntry) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.vectors[entry.ContentHash]; !ok {
		r.st.vectors[entry.ContentHash] = entry.Vector
	}
	return nil
}

// keywordEmbedder maps texts to fixed unit vectors by keyword so clustering
// is deterministic in tests.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (e *keywordEmbedder) vectorFor(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "price"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "support"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail
	e.mu.Unlock()
	if fail {
		return nil, errors.New("embedding backend down")
	}
	return e.vectorFor(text), nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// scriptedGenerator returns a canned proposal per keyword group and can be
// told to fail for one of them or to run a hook before answering.
type scriptedGenerator struct {
	mu         sync.Mutex
	calls      int
	failFor    string
	failAll    bool
	beforeCall func()
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *scriptedGenerator) Generate(ctx context.Context, in codeframe.PromptInput) (*codeframe.Proposal, codeframe.Usage, error) {
	g.mu.Lock()
	g.calls++
	hook := g.beforeCall
	failFor := g.failFor
	failAll := g.failAll
	g.mu.Unlock()

	if hook != nil {
		hook()
	}

	topic := "other"
	if len(in.Exemplars) > 0 {
		lower := strings.ToLower(in.Exemplars[0])
		switch {
		case strings.Contains(lower, "price"):
			topic = "price"
		case strings.Contains(lower, "support"):
			topic = "support"
		}
	}

	usage := codeframe.Usage{Tokens: 100}
	if failAll || (failFor != "" && topic == failFor) {
		return nil, usage, errors.New("model returned garbage")
	}

	theme := strings.ToUpper(topic[:1]) + topic[1:]
	return &codeframe.Proposal{
		Theme: codeframe.NodeProposal{Name: theme + " issues", Description: "Answers about " + topic, Confidence: 0.9},
		Codes: []codeframe.CodeProposal{
			{
				NodeProposal: codeframe.NodeProposal{Name: theme + " too high", Description: topic + " complaints", Confidence: 0.85},
			},
			{
				NodeProposal: codeframe.NodeProposal{Name: theme + " unclear", Description: topic + " confusion", Confidence: 0.6},
			},
		},
	}, usage, nil
}

// memCancelStore is an in-process stand-in for the redis flag store.
type memCancelStore struct {
	mu    sync.Mutex
	flags map[uuid.UUID]bool
}

func newMemCancelStore() *memCancelStore {
	return &memCancelStore{flags: map[uuid.UUID]bool{}}
}

func (s *memCancelStore) RequestCancel(ctx context.Context, runId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[runId] = true
	return nil
}

func (s *memCancelStore) IsCancelRequested(ctx context.Context, runId uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[runId], nil
}

func (s *memCancelStore) Clear(ctx context.Context, runId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, runId)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// recordingPublisher captures queue payloads from StartGeneration.
type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, append([]byte(nil), payload...))
	return nil
}
