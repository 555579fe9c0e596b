// Package semsearch answers investigator questions by ranking the embedded
// evidence catalog against the question and prompting a completion model
// with the best matches as context.
package semsearch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"dcia/internal/errors"
	"dcia/internal/models"
	"dcia/internal/repositories"
	"golang.org/x/sync/errgroup"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer runs a chat completion with a system prompt and a user message.
type Completer interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

// Repository is the slice of the evidence store the search needs.
type Repository interface {
	EmbeddedNodes(ctx context.Context) ([]repositories.Node, error)
	NodesMissingEmbeddings(ctx context.Context) ([]repositories.Node, error)
	SaveEmbedding(ctx context.Context, nodeID int64, embedding []float32) error
}

const (
	// searchLimit caps how many catalog entries feed the completion prompt.
	searchLimit = 5
	// minScore filters out entries whose similarity to the question is too
	// low to be useful context.
	minScore = 0.7
	// embedConcurrency bounds parallel embedding calls during a refresh.
	embedConcurrency = 4
)

const fallbackAnswer = "I don't have specific information about that in my knowledge base. " +
	"Please try a different question related to digital forensics."

const systemPrompt = "Use the following forensic knowledge to answer the question accurately. " +
	"If the information doesn't contain an answer to the question, state that you don't have " +
	"enough information rather than making up an answer."

type Service struct {
	repo      Repository
	embedder  Embedder
	completer Completer
	logger    *slog.Logger
}

func NewService(repo Repository, embedder Embedder, completer Completer, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		embedder:  embedder,
		completer: completer,
		logger:    logger.With("source", "semsearch.Service"),
	}
}

// Answer embeds the question, ranks the catalog against it and prompts the
// completion model with the best matches. When nothing in the catalog is
// relevant enough a canned fallback answer with no sources is returned.
func (s *Service) Answer(ctx context.Context, question string) (models.Answer, error) {
	queryEmbedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return models.Answer{}, errors.Wrap(err, "embed question")
	}

	nodes, err := s.repo.EmbeddedNodes(ctx)
	if err != nil {
		return models.Answer{}, errors.Wrap(err, "load embedded nodes")
	}

	ranked := Rank(queryEmbedding, nodes, searchLimit, minScore)
	if len(ranked) == 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "no relevant catalog entries for question")
		return models.Answer{Answer: fallbackAnswer, Sources: []models.Citation{}}, nil
	}

	var (
		contextLines = make([]string, 0, len(ranked))
		sources      = make([]models.Citation, 0, len(ranked))
	)
	for _, match := range ranked {
		contextLines = append(contextLines,
			fmt.Sprintf("- %s: %s", match.Node.Name, match.Node.Significance))
		sources = append(sources, models.Citation{
			Name:           match.Node.Name,
			SourceKind:     match.Node.Kind,
			RelevanceScore: math.Round(match.Score*100*100) / 100,
		})
	}

	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(contextLines, "\n"), question)
	answer, err := s.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return models.Answer{}, errors.Wrap(err, "complete answer")
	}

	return models.Answer{Answer: answer, Sources: sources}, nil
}

// RefreshEmbeddings embeds every catalog node that is still missing an
// embedding and returns how many nodes were embedded.
func (s *Service) RefreshEmbeddings(ctx context.Context) (int, error) {
	nodes, err := s.repo.NodesMissingEmbeddings(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "load nodes missing embeddings")
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(embedConcurrency)
	for _, node := range nodes {
		node := node
		group.Go(func() error {
			embedding, err := s.embedder.Embed(groupCtx, EmbeddingText(node))
			if err != nil {
				return errors.Wrap(err, "embed node", slog.Int64("node_id", node.ID))
			}
			if err = s.repo.SaveEmbedding(groupCtx, node.ID, embedding); err != nil {
				return err
			}
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return 0, err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "refreshed embeddings", slog.Int("count", len(nodes)))
	return len(nodes), nil
}

// EmbeddingText is the canonical text representation of a node fed to the
// embedding model.
func EmbeddingText(node repositories.Node) string {
	return node.Name + ": " + node.Significance
}

// Match pairs a catalog node with its similarity to the query.
type Match struct {
	Node  repositories.Node
	Score float64
}

// Rank returns up to limit nodes whose cosine similarity to the query
// meets the threshold, best first.
func Rank(query []float32, nodes []repositories.Node, limit int, threshold float64) []Match {
	matches := make([]Match, 0, len(nodes))
	for _, node := range nodes {
		score := CosineSimilarity(query, node.Embedding)
		if score >= threshold {
			matches = append(matches, Match{Node: node, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
