package catalog_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dcia/internal/catalog"
	"dcia/internal/models"
	"dcia/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestListCrimeSubtypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crimesubtypes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["phishing","ransomware","identity-theft"]`))
	}))
	defer server.Close()

	client := catalog.NewClient(server.URL, testhelpers.NewLogger(io.Discard))
	subtypes, err := client.ListCrimeSubtypes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"phishing", "ransomware", "identity-theft"}, subtypes)
}

func TestListEvidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/evidence/identity-theft", r.URL.Path)
		require.Equal(t, "android", r.URL.Query().Get("device"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Account Database","significance":"Cached credentials.","locations":["/data/accounts.db","/data/backup/accounts.db"]},
			{"name":"Windows Only","significance":"n/a","locations":[]}
		]`))
	}))
	defer server.Close()

	client := catalog.NewClient(server.URL, testhelpers.NewLogger(io.Discard))
	items, err := client.ListEvidence(context.Background(), "identity-theft", models.DeviceAndroid)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Account Database", items[0].Name)
	require.Len(t, items[0].Locations, 2)
	require.Empty(t, items[1].Locations)
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"not":"a list"`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := catalog.NewClient(server.URL, testhelpers.NewLogger(io.Discard))
			_, err := client.ListCrimeSubtypes(context.Background())
			require.ErrorIs(t, err, catalog.ErrCatalog)

			_, err = client.ListEvidence(context.Background(), "phishing", models.DeviceWindows)
			require.ErrorIs(t, err, catalog.ErrCatalog)
		})
	}
}

func TestClientConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := catalog.NewClient(server.URL, testhelpers.NewLogger(io.Discard))
	_, err := client.ListCrimeSubtypes(context.Background())
	require.ErrorIs(t, err, catalog.ErrCatalog)
}
