package tolqc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mlwh-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(nameRoot string) reconcile.Record {
	qc := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return reconcile.Record{
		Platform:    reconcile.PlatformLongReadContinuous,
		StudyID:     "6771",
		SampleName:  "DTOL99",
		TaxonID:     42,
		RunID:       "m64097e_210221_172213",
		NameRoot:    nameRoot,
		LimsQC:      reconcile.QCPass,
		QCDate:      &qc,
		RunComplete: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
	}
}

func key(nameRoot string) reconcile.Key {
	return reconcile.Key{Platform: reconcile.PlatformLongReadContinuous, NameRoot: nameRoot}
}

func TestClient_Lookup(t *testing.T) {
	var pages int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/seq-data/lookup", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("Token"))
		atomic.AddInt32(&pages, 1)

		var req lookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Keys), 2)

		resp := recordsBody{}
		for _, k := range req.Keys {
			if k.NameRoot != "missing" {
				resp.Data = append(resp.Data, toWire(testRecord(k.NameRoot)))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := New(Config{URL: server.URL + "/api/v1/", Token: "secret", PageSize: 2})
	found, err := c.Lookup(context.Background(), []reconcile.Key{key("a#bc1"), key("missing"), key("b#bc2")})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&pages))
	assert.Len(t, found, 2)
	got := found[key("a#bc1")]
	assert.Equal(t, reconcile.QCPass, got.LimsQC)
	assert.True(t, got.QCDate.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))
}

func TestClient_CreateBatchPages(t *testing.T) {
	var received []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/seq-data", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body recordsBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received = append(received, len(body.Data))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := New(Config{URL: server.URL, PageSize: 2})
	recs := []reconcile.Record{testRecord("a"), testRecord("b"), testRecord("c")}
	require.NoError(t, c.CreateBatch(context.Background(), recs))
	assert.Equal(t, []int{2, 1}, received)
}

func TestClient_CreateSendsFlatLocation(t *testing.T) {
	var body map[string][]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	rec := testRecord("a")
	rec.DataLocation = &reconcile.Location{Root: "/seq/pacbio/r64097e", Path: "1_A01"}
	require.NoError(t, New(Config{URL: server.URL}).Create(context.Background(), rec))

	require.Len(t, body["data"], 1)
	item := body["data"][0]
	assert.Equal(t, "/seq/pacbio/r64097e", item["data_root"])
	assert.Equal(t, "1_A01", item["data_path"])
	assert.NotContains(t, item, "data_location")
	assert.Equal(t, "pass", item["lims_qc"])
}

func TestClient_LookupReadsFlatLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"platform_type":"PacBio","name_root":"a","lims_qc":"fail",` +
			`"data_root":"/seq/pacbio/r64097e","data_path":"1_A01"},{"platform_type":"PacBio","name_root":"b"}]}`))
	}))
	defer server.Close()

	found, err := New(Config{URL: server.URL}).Lookup(context.Background(), []reconcile.Key{key("a"), key("b")})
	require.NoError(t, err)
	require.NotNil(t, found[key("a")].DataLocation)
	assert.Equal(t, reconcile.Location{Root: "/seq/pacbio/r64097e", Path: "1_A01"}, *found[key("a")].DataLocation)
	assert.Equal(t, reconcile.QCFail, found[key("a")].LimsQC)
	assert.Nil(t, found[key("b")].DataLocation)
	assert.Equal(t, reconcile.QCUnknown, found[key("b")].LimsQC)
}

func TestClient_UpdateSendsAttributes(t *testing.T) {
	var body patchBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	values := testRecord("a")
	values.LimsQC = reconcile.QCFail
	values.DataLocation = &reconcile.Location{Root: "/seq/pacbio/r64097e", Path: "1_A01"}

	c := New(Config{URL: server.URL})
	err := c.Update(context.Background(), reconcile.Patch{
		Key:    key("a"),
		Fields: []reconcile.Field{reconcile.FieldLimsQC, reconcile.FieldDataLocation},
		Values: values,
	})
	require.NoError(t, err)

	require.Len(t, body.Data, 1)
	item := body.Data[0]
	assert.Equal(t, reconcile.PlatformLongReadContinuous, item.Platform)
	assert.Equal(t, "a", item.NameRoot)
	assert.Equal(t, map[string]any{
		"lims_qc":   "fail",
		"data_root": "/seq/pacbio/r64097e",
		"data_path": "1_A01",
	}, item.Attributes)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			err := New(Config{URL: server.URL}).Create(context.Background(), testRecord("a"))
			require.Error(t, err)
			assert.Equal(t, tt.transient, reconcile.IsTransient(err))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "create", apiErr.Operation)
			assert.Contains(t, apiErr.Error(), "nope")
		})
	}
}

func TestClient_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(Config{URL: url}).Lookup(context.Background(), []reconcile.Key{key("a")})
	require.Error(t, err)
	assert.True(t, reconcile.IsTransient(err))
}

func TestClient_RetriedByApplier(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	applier := &reconcile.Applier{
		Store: New(Config{URL: server.URL}),
		Retry: reconcile.RetryPolicy{MaxRetries: 2, Base: time.Millisecond, Max: 2 * time.Millisecond},
	}
	res := applier.Apply(context.Background(), []reconcile.Record{testRecord("a")}, nil)
	assert.Len(t, res.Created, 1)
	assert.Empty(t, res.Failed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_AutoSyncStudies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/study", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("auto_sync"))
		_, _ = w.Write([]byte(`{"data":[{"id":"5901"},{"id":""},{"id":"6771"}]}`))
	}))
	defer server.Close()

	ids, err := New(Config{URL: server.URL}).AutoSyncStudies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"5901", "6771"}, ids)
}
