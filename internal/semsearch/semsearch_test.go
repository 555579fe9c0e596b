package semsearch_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"dcia/internal/repositories"
	"dcia/internal/semsearch"
	"dcia/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder map[string][]float32

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if embedding, ok := f[text]; ok {
		return embedding, nil
	}
	return []float32{0, 0, 1}, nil
}

type fakeCompleter struct {
	lastSystem string
	lastUser   string
	answer     string
}

func (f *fakeCompleter) Complete(_ context.Context, system string, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.answer, nil
}

type fakeRepo struct {
	mu       sync.Mutex
	embedded []repositories.Node
	missing  []repositories.Node
	saved    map[int64][]float32
}

func (f *fakeRepo) EmbeddedNodes(context.Context) ([]repositories.Node, error) {
	return f.embedded, nil
}

func (f *fakeRepo) NodesMissingEmbeddings(context.Context) ([]repositories.Node, error) {
	return f.missing, nil
}

func (f *fakeRepo) SaveEmbedding(_ context.Context, nodeID int64, embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[int64][]float32{}
	}
	f.saved[nodeID] = embedding
	return nil
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1.0, semsearch.CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, semsearch.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, semsearch.CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, semsearch.CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, semsearch.CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestRank(t *testing.T) {
	t.Parallel()
	nodes := []repositories.Node{
		{ID: 1, Name: "weak", Embedding: []float32{0.1, 1}},
		{ID: 2, Name: "exact", Embedding: []float32{1, 0}},
		{ID: 3, Name: "close", Embedding: []float32{1, 0.2}},
	}

	matches := semsearch.Rank([]float32{1, 0}, nodes, 5, 0.7)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].Node.Name)
	assert.Equal(t, "close", matches[1].Node.Name)

	matches = semsearch.Rank([]float32{1, 0}, nodes, 1, 0.7)
	require.Len(t, matches, 1)
	assert.Equal(t, "exact", matches[0].Node.Name)
}

func TestAnswerWithRelevantCatalog(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		embedded: []repositories.Node{
			{ID: 1, Name: "mmssms.db", Kind: "EvidenceItem", Significance: "SMS message store", Embedding: []float32{1, 0, 0}},
			{ID: 2, Name: "Wi-Fi Config", Kind: "EvidenceItem", Significance: "Known networks", Embedding: []float32{0, 1, 0}},
		},
	}
	embedder := fakeEmbedder{"Where are SMS messages stored?": {1, 0.1, 0}}
	completer := &fakeCompleter{answer: "They live in the telephony database."}
	service := semsearch.NewService(repo, embedder, completer, testhelpers.NewLogger(io.Discard))

	answer, err := service.Answer(context.Background(), "Where are SMS messages stored?")
	require.NoError(t, err)
	assert.Equal(t, "They live in the telephony database.", answer.Answer)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "mmssms.db", answer.Sources[0].Name)
	assert.Equal(t, "EvidenceItem", answer.Sources[0].SourceKind)
	assert.Greater(t, answer.Sources[0].RelevanceScore, 90.0)

	assert.Contains(t, completer.lastUser, "mmssms.db: SMS message store")
	assert.Contains(t, completer.lastUser, "Question: Where are SMS messages stored?")
	assert.Contains(t, completer.lastSystem, "forensic knowledge")
}

func TestAnswerFallsBackWhenNothingRelevant(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		embedded: []repositories.Node{
			{ID: 1, Name: "mmssms.db", Kind: "EvidenceItem", Significance: "SMS message store", Embedding: []float32{1, 0, 0}},
		},
	}
	embedder := fakeEmbedder{"What is the meaning of life?": {0, 0, 1}}
	completer := &fakeCompleter{answer: "should not be called"}
	service := semsearch.NewService(repo, embedder, completer, testhelpers.NewLogger(io.Discard))

	answer, err := service.Answer(context.Background(), "What is the meaning of life?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer.Answer, "I don't have specific information"))
	assert.Empty(t, answer.Sources)
	assert.Empty(t, completer.lastUser)
}

func TestRefreshEmbeddings(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		missing: []repositories.Node{
			{ID: 1, Name: "mmssms.db", Significance: "SMS message store"},
			{ID: 2, Name: "Wi-Fi Config", Significance: "Known networks"},
		},
	}
	embedder := fakeEmbedder{
		"mmssms.db: SMS message store": {1, 0, 0},
		"Wi-Fi Config: Known networks": {0, 1, 0},
	}
	service := semsearch.NewService(repo, embedder, &fakeCompleter{}, testhelpers.NewLogger(io.Discard))

	count, err := service.RefreshEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, repo.saved, 2)
	assert.Equal(t, []float32{1, 0, 0}, repo.saved[1])
	assert.Equal(t, []float32{0, 1, 0}, repo.saved[2])
}
