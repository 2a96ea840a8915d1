package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mlwh-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteOutput(t *testing.T) {
	summary := &reconcile.RunSummary{RunID: "run-1", DryRun: true}

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, "json", summary))
		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "run-1", got["run_id"])
		assert.Equal(t, true, got["dry_run"])
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, "YAML", summary))
		assert.Contains(t, buf.String(), "run_id: run-1")
		assert.Contains(t, buf.String(), "dry_run: true")
	})

	t.Run("Unknown", func(t *testing.T) {
		assert.Error(t, writeOutput(&bytes.Buffer{}, "xml", summary))
	})
}

func TestStreamWriter(t *testing.T) {
	recs := []reconcile.Record{
		{Platform: reconcile.PlatformShortRead, NameRoot: "36691_2#7", LimsQC: reconcile.QCPass},
		{Platform: reconcile.PlatformShortRead, NameRoot: "36691_2#8", LimsQC: reconcile.QCUnknown},
	}

	t.Run("NDJSON", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := newStreamWriter(&buf, "json")
		require.NoError(t, err)
		for _, r := range recs {
			require.NoError(t, w.Write(r))
		}
		require.NoError(t, w.Close())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		var first map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		assert.Equal(t, "36691_2#7", first["name_root"])
		assert.Equal(t, "pass", first["lims_qc"])
	})

	t.Run("YAMLDocuments", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := newStreamWriter(&buf, "yaml")
		require.NoError(t, err)
		for _, r := range recs {
			require.NoError(t, w.Write(r))
		}
		require.NoError(t, w.Close())

		dec := yaml.NewDecoder(&buf)
		var names []string
		for {
			var doc map[string]any
			if err := dec.Decode(&doc); err != nil {
				break
			}
			names = append(names, doc["name_root"].(string))
		}
		assert.Equal(t, []string{"36691_2#7", "36691_2#8"}, names)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := newStreamWriter(&bytes.Buffer{}, "csv")
		assert.Error(t, err)
	})
}
