package records

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

// mockKV is a function-field fake of db.KVStore.
type mockKV struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls int
	getFn func(ctx context.Context, key string) ([]byte, error)
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type failingDecoder struct{}

func (failingDecoder) DecodeAll(_, _ []byte) ([]byte, error) {
	return nil, errors.New("dictionary mismatch")
}

// testDict is raw-content dictionary material resembling stored payloads.
var testDict = []byte(`{"package_id":"","package_name":"","version":"","attribute_path":"",` +
	`"description":"","long_description":"","homepage":"https://","license":{"spdxId":"MIT"},` +
	`"platforms":["x86_64-linux","aarch64-linux","x86_64-darwin","aarch64-darwin"],` +
	`"category":"","broken":false,"unfree":false,"available":true}`)

func compress(t *testing.T, data, dict []byte) []byte {
	t.Helper()
	opts := []zstd.EOption{}
	if dict != nil {
		opts = append(opts, zstd.WithEncoderDictRaw(0, dict))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil)
}

func newTestStore(t *testing.T, kv db.KVStore, cfg Config) *Store {
	t.Helper()
	codec, err := NewCodec(testDict)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	t.Cleanup(codec.Close)

	s, err := New(kv, codec, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}
