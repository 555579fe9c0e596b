package investigation_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"dcia/internal/investigation"
	"dcia/internal/models"
	"dcia/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newSession(catalog investigation.CatalogClient, qa investigation.QAClient) *investigation.Session {
	return investigation.NewSession(catalog, qa, testhelpers.NewLogger(io.Discard))
}

func TestSessionQueryResetOnSubtypeChange(t *testing.T) {
	catalog := staticCatalog(map[models.DeviceType][]models.EvidenceItem{
		models.DeviceAndroid: {
			{Name: "Media Cache", Significance: "Cached media from messaging apps.", Locations: []string{"/data/cache"}},
		},
		models.DeviceWindows: {
			{Name: "Temp Cache", Significance: "Temporary cache files.", Locations: []string{`C:\Temp\Cache`}},
		},
	})
	session := newSession(catalog, echoQA())
	ctx := context.Background()

	require.NoError(t, session.Navigate(ctx, "phishing", models.DeviceAndroid))
	require.Len(t, session.Search("cache"), 1)
	require.Equal(t, "cache", session.Query())

	// A device toggle within the same subtype keeps the query.
	require.NoError(t, session.Navigate(ctx, "phishing", models.DeviceWindows))
	require.Equal(t, "cache", session.Query())
	require.Len(t, session.Navigation().Artefacts, 1)

	// A subtype change resets the query.
	require.NoError(t, session.Navigate(ctx, "ransomware", models.DeviceWindows))
	require.Equal(t, "", session.Query())
}

func TestSessionSearchRequiresReadyState(t *testing.T) {
	session := newSession(catalogStub{
		listEvidence: func(_ context.Context, _ string, _ models.DeviceType) ([]models.EvidenceItem, error) {
			return nil, investigation.ErrValidation
		},
	}, echoQA())
	ctx := context.Background()

	// Idle: nothing selected yet.
	require.Empty(t, session.Search("cache"))

	// Error state after a failed fetch.
	require.NoError(t, session.Navigate(ctx, "phishing", models.DeviceAndroid))
	require.Equal(t, investigation.StateError, session.Navigation().State)
	require.Empty(t, session.Search("cache"))
}

func TestSessionNavigateIsIdempotent(t *testing.T) {
	var fetches atomic.Int32
	catalog := catalogStub{
		listEvidence: func(_ context.Context, _ string, _ models.DeviceType) ([]models.EvidenceItem, error) {
			fetches.Add(1)
			return []models.EvidenceItem{
				{Name: "User Database", Significance: "Profiles.", Locations: []string{"/data/user.db"}},
			}, nil
		},
	}
	session := newSession(catalog, echoQA())
	ctx := context.Background()

	require.NoError(t, session.Navigate(ctx, "phishing", models.DeviceAndroid))
	require.NoError(t, session.Navigate(ctx, "phishing", models.DeviceAndroid))
	require.NoError(t, session.Navigate(ctx, "Phishing", models.DeviceAndroid))
	require.Equal(t, int32(1), fetches.Load())

	// A failed state is retried on re-navigation, a different key refetches.
	require.NoError(t, session.Navigate(ctx, "phishing", models.DeviceWindows))
	require.Equal(t, int32(2), fetches.Load())
}

func TestSessionChatReseedOnContextChange(t *testing.T) {
	session := newSession(staticCatalog(nil), echoQA())
	ctx := context.Background()

	chat := session.OpenChat("phishing", models.DeviceAndroid)
	require.NoError(t, chat.Ask(ctx, "What should I collect first?"))
	require.Len(t, session.Transcript(), 3)

	// Reopening the same context keeps the transcript.
	same := session.OpenChat("phishing", models.DeviceAndroid)
	require.Len(t, same.Transcript(), 3)

	// A different context seeds a fresh transcript.
	fresh := session.AskAboutArtefact("Browser History", "identity-theft", models.DeviceWindows)
	transcript := fresh.Transcript()
	require.Len(t, transcript, 1)
	require.Contains(t, transcript[0].Content, "identity-theft")
	require.Contains(t, transcript[0].Content, "Browser History")
}

func TestSessionEndToEndScenario(t *testing.T) {
	// identity-theft on android: the catalog returns two items, one without
	// android locations. The Ready list holds exactly one artefact.
	catalog := staticCatalog(map[models.DeviceType][]models.EvidenceItem{
		models.DeviceAndroid: {
			{
				Name:         "Account Database",
				Significance: "Holds cached account credentials.",
				Locations:    []string{"/data/data/com.accounts/databases/accounts.db"},
			},
			{Name: "Windows Only Artefact", Significance: "Nothing on android.", Locations: nil},
		},
	})
	session := newSession(catalog, echoQA())
	ctx := context.Background()

	require.NoError(t, session.Navigate(ctx, "identity-theft", models.DeviceAndroid))
	snapshot := session.Navigation()
	require.Equal(t, investigation.StateReady, snapshot.State)
	require.Len(t, snapshot.Artefacts, 1)

	require.Len(t, session.Search("cache"), 1, "significance mentions cached credentials")
	require.Empty(t, session.Search("nonexistent"))
}
