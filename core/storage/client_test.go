package storage_test

import (
	"testing"

	"mlwh-sync/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name string
		cfg  storage.Config
	}{
		{"Plain", storage.Config{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "mlwh-sync"}},
		{"HTTPScheme", storage.Config{Endpoint: "http://minio.internal:9000", AccessKey: "k", SecretKey: "s"}},
		{"HTTPSScheme", storage.Config{Endpoint: "https://s3.amazonaws.com", AccessKey: "k", SecretKey: "s", UseSSL: true, Region: "eu-west-2"}},
		{"DefaultTimeout", storage.Config{Endpoint: "localhost:9000", TimeoutSeconds: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := storage.NewClient(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, client)
			// The client connects lazily, so building an archive needs no server.
			assert.Equal(t, tt.cfg.Bucket, storage.NewArchive(client, tt.cfg.Bucket, "").Bucket())
		})
	}
}
