package repositories_test

import (
	"context"
	"io"
	"testing"

	"dcia/internal/db"
	"dcia/internal/models"
	"dcia/internal/repositories"
	"dcia/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *repositories.EvidenceRepository {
	t.Helper()
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := db.NewDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	return repositories.NewEvidenceRepository(dbs, logger)
}

func testSeed() models.CatalogSeed {
	return models.CatalogSeed{
		Subtypes: []models.SeedSubtype{
			{
				Name: "identity-theft",
				Items: []models.SeedItem{
					{
						Name:         "Browser Autofill Data",
						Significance: "Stored credentials and personal details",
						Locations: map[string][]string{
							"windows": {"AppData/Local/Google/Chrome/User Data/Default/Web Data"},
						},
					},
					{
						Name:         "mmssms.db",
						Significance: "SMS messages including phishing links",
						Locations: map[string][]string{
							"android": {
								"/data/data/com.android.providers.telephony/databases/mmssms.db",
								"/data/user_de/0/com.android.providers.telephony/databases/mmssms.db",
							},
						},
					},
				},
			},
			{
				Name: "cyberstalking",
				Items: []models.SeedItem{
					{
						Name:         "Location History",
						Significance: "Timeline of the device's movements",
						Locations:    map[string][]string{},
					},
				},
			},
		},
	}
}

func TestReplaceCatalogAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.ReplaceCatalog(ctx, testSeed()))

	subtypes, err := repo.ListSubtypes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"cyberstalking", "identity-theft"}, subtypes)

	items, err := repo.ListEvidence(ctx, "identity-theft", models.DeviceAndroid)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Browser Autofill Data", items[0].Name)
	require.Empty(t, items[0].Locations)
	require.Equal(t, "mmssms.db", items[1].Name)
	require.Equal(t, []string{
		"/data/data/com.android.providers.telephony/databases/mmssms.db",
		"/data/user_de/0/com.android.providers.telephony/databases/mmssms.db",
	}, items[1].Locations)
}

func TestListEvidenceSubtypeIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)
	require.NoError(t, repo.ReplaceCatalog(ctx, testSeed()))

	items, err := repo.ListEvidence(ctx, "Identity-Theft", models.DeviceWindows)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, []string{"AppData/Local/Google/Chrome/User Data/Default/Web Data"}, items[0].Locations)
}

func TestListEvidenceUnknownSubtype(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)
	require.NoError(t, repo.ReplaceCatalog(ctx, testSeed()))

	items, err := repo.ListEvidence(ctx, "arson", models.DeviceAndroid)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestEmbeddingLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)
	require.NoError(t, repo.ReplaceCatalog(ctx, testSeed()))

	missing, err := repo.NodesMissingEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 3)

	for _, node := range missing {
		require.NoError(t, repo.SaveEmbedding(ctx, node.ID, []float32{0.1, 0.2, 0.3}))
	}

	missing, err = repo.NodesMissingEmbeddings(ctx)
	require.NoError(t, err)
	require.Empty(t, missing)

	embedded, err := repo.EmbeddedNodes(ctx)
	require.NoError(t, err)
	require.Len(t, embedded, 3)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, embedded[0].Embedding)
	require.Equal(t, "EvidenceItem", embedded[0].Kind)
}

func TestReplaceCatalogKeepsUnchangedEmbeddings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)
	require.NoError(t, repo.ReplaceCatalog(ctx, testSeed()))

	missing, err := repo.NodesMissingEmbeddings(ctx)
	require.NoError(t, err)
	for _, node := range missing {
		require.NoError(t, repo.SaveEmbedding(ctx, node.ID, []float32{0.5}))
	}

	// Re-ingest with one item's significance changed. Only that item should
	// need re-embedding.
	seed := testSeed()
	seed.Subtypes[0].Items[0].Significance = "Updated significance"
	require.NoError(t, repo.ReplaceCatalog(ctx, seed))

	missing, err = repo.NodesMissingEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, "Browser Autofill Data", missing[0].Name)
}
