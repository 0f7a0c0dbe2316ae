package gateway

import (
	"context"
	"fmt"
	"sync"
)

type StorageMock struct {
	lock sync.Mutex

	UploadFunc func(ctx context.Context, path string, data []byte, contentType string) (string, error)

	Objects map[string][]byte
}

func (m *StorageMock) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, path, data, contentType)
	}

	if m.Objects == nil {
		m.Objects = make(map[string][]byte)
	}
	m.Objects[path] = data

	return "https://storage.example.com/" + path, nil
}

func (m *StorageMock) Get(path string) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	data, ok := m.Objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s not found", path)
	}
	return data, nil
}
