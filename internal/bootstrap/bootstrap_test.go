package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehirent-backend/internal/config"
	"vehirent-backend/internal/service"
)

func TestOpen_MemoryStore(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Type: config.StoreMemory}}

	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Firebase)
	require.NotNil(t, b.Repos)
	assert.NotNil(t, b.Repos.Handoffs)
	assert.NotNil(t, b.Repos.Transactor)
}

func TestNeedsFirebase(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{"MemoryAndLocal", config.Config{Store: config.StoreConfig{Type: "memory"}, Storage: config.StorageConfig{Type: "local"}}, false},
		{"FirestoreStore", config.Config{Store: config.StoreConfig{Type: "firestore"}}, true},
		{"FirebaseStorage", config.Config{Storage: config.StorageConfig{Type: "firebase"}}, true},
		{"ProjectForPush", config.Config{Firebase: config.FirebaseConfig{ProjectID: "vehirent-dev"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsFirebase(&tt.cfg))
		})
	}
}

func TestNotifications_DefaultsToNoop(t *testing.T) {
	push, email := Notifications(context.Background(), &config.Config{}, nil)
	require.NotNil(t, push)
	require.NotNil(t, email)
	assert.NoError(t, push.Send(context.Background(), "token", service.PushMessage{Title: "hola"}))
}
