package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"dcia/internal/e2etest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFakeAssistant serves a canned evidence catalog and answer in the
// assistantd wire format.
func startFakeAssistant(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/crimesubtypes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{"cyberstalking", "identity-theft"})
	})
	mux.HandleFunc("/evidence/", func(w http.ResponseWriter, r *http.Request) {
		device := r.URL.Query().Get("device")
		if device != "android" && device != "windows" {
			http.Error(w, `{"detail":"Device type must be either 'android' or 'windows'"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if device == "windows" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[
			{
				"name": "mmssms.db",
				"significance": "SMS messages including phishing links",
				"locations": [
					"/data/data/com.android.providers.telephony/databases/mmssms.db",
					"/data/user_de/0/com.android.providers.telephony/databases/mmssms.db"
				]
			},
			{
				"name": "Browser Cache",
				"significance": "Visited pages and downloads",
				"locations": ["/data/data/com.android.chrome/cache"]
			},
			{
				"name": "Cloud Backup",
				"significance": "Remote copies, no local trace",
				"locations": []
			}
		]`))
	})
	mux.HandleFunc("/ask", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answer": "SMS messages live in the telephony database.",
			"sources": [{"name": "mmssms.db", "type": "EvidenceItem", "relevance_score": 91.4}]
		}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testLookupEnv(assistantURL string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		switch key {
		case "DCIA_ADDR":
			return "localhost:0", true
		case "DCIA_PPROF_PORT":
			return ":0", true
		case "DCIA_SQLITE_URL":
			return ":memory:", true
		case "DCIA_ASSISTANT_URL":
			return assistantURL, true
		default:
			return "", false
		}
	}
}

func startWebServer(t *testing.T) *e2etest.Client {
	t.Helper()
	assistant := startFakeAssistant(t)
	server, err := e2etest.StartServer(context.Background(), io.Discard, testLookupEnv(assistant.URL), run)
	require.NoError(t, err)
	return server.Client()
}

func TestHomeListsCrimeSubtypes(t *testing.T) {
	client := startWebServer(t)
	ctx := context.Background()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)

	links := doc.Find("a.subtype")
	require.Equal(t, 2, links.Length())
	assert.Equal(t, "cyberstalking", strings.TrimSpace(links.First().Text()))
	href, ok := links.First().Attr("href")
	require.True(t, ok)
	assert.Equal(t, "/investigate?subtype=cyberstalking", href)
}

func TestInvestigateShowsArtefactsForDevice(t *testing.T) {
	client := startWebServer(t)
	ctx := context.Background()

	doc, err := client.GetDoc(ctx, "/investigate?subtype=identity-theft&device=android")
	require.NoError(t, err)

	artefacts := doc.Find("li.artefact")
	require.Equal(t, 2, artefacts.Length(), "artefacts without locations must not be listed")
	assert.Equal(t, 1, doc.Find("h3:contains('mmssms.db')").Length())
	assert.Equal(t, 1, doc.Find("h3:contains('Browser Cache')").Length())
	assert.Equal(t, 0, doc.Find("h3:contains('Cloud Backup')").Length())

	assert.Contains(t, doc.Find("p.location.secondary").Text(),
		"/data/user_de/0/com.android.providers.telephony/databases/mmssms.db")
	assert.Equal(t, "android", doc.Find("a.device.active").Text())
}

func TestInvestigateSearchFiltersArtefacts(t *testing.T) {
	client := startWebServer(t)
	ctx := context.Background()

	doc, err := client.GetDoc(ctx, "/investigate?subtype=identity-theft&device=android&query=phishing")
	require.NoError(t, err)

	artefacts := doc.Find("li.artefact")
	require.Equal(t, 1, artefacts.Length())
	assert.Equal(t, 1, doc.Find("h3:contains('mmssms.db')").Length())

	// The query survives a device toggle.
	doc, err = client.GetDoc(ctx, "/investigate?subtype=identity-theft&device=windows")
	require.NoError(t, err)
	value, ok := doc.Find("input[name=query]").Attr("value")
	require.True(t, ok)
	assert.Equal(t, "phishing", value)

	// A subtype change resets it.
	doc, err = client.GetDoc(ctx, "/investigate?subtype=cyberstalking&device=android")
	require.NoError(t, err)
	value, ok = doc.Find("input[name=query]").Attr("value")
	require.True(t, ok)
	assert.Empty(t, value)
}

func TestInvestigateRejectsUnknownDevice(t *testing.T) {
	client := startWebServer(t)
	ctx := context.Background()

	resp, err := client.Get(ctx, "/investigate?subtype=identity-theft&device=iphone")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatConversation(t *testing.T) {
	client := startWebServer(t)
	ctx := context.Background()

	// Navigate first so the chat has a context.
	_, err := client.GetDoc(ctx, "/investigate?subtype=identity-theft&device=android")
	require.NoError(t, err)

	doc, err := client.GetDoc(ctx, "/chat")
	require.NoError(t, err)
	welcome := doc.Find("li.message.assistant").First().Text()
	assert.Contains(t, welcome, "identity-theft investigation on android devices")

	doc, err = client.SubmitForm(ctx, "/chat", "/chat/ask", url.Values{
		"question": []string{"Where are SMS messages stored?"},
	})
	require.NoError(t, err)

	messages := doc.Find("li.message")
	require.Equal(t, 3, messages.Length())
	assert.Contains(t, doc.Find("li.message.user").Text(), "Where are SMS messages stored?")
	answer := doc.Find("li.message.assistant").Last().Text()
	assert.Contains(t, answer, "SMS messages live in the telephony database.")
	assert.Contains(t, answer, "1. mmssms.db (91% relevance)")
}

func TestChatFromArtefactMentionsIt(t *testing.T) {
	client := startWebServer(t)
	ctx := context.Background()

	_, err := client.GetDoc(ctx, "/investigate?subtype=identity-theft&device=android")
	require.NoError(t, err)

	doc, err := client.GetDoc(ctx, "/chat?artefact=mmssms.db")
	require.NoError(t, err)
	welcome := doc.Find("li.message.assistant").First().Text()
	assert.Contains(t, welcome, "You were looking at the mmssms.db artefact.")
}

func TestChatWithoutNavigationRedirectsHome(t *testing.T) {
	client := startWebServer(t)
	ctx := context.Background()

	doc, err := client.GetDoc(ctx, "/chat")
	require.NoError(t, err)
	// The redirect lands on the subtype selection page.
	assert.Equal(t, 2, doc.Find("a.subtype").Length())
}
