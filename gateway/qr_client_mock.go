package gateway

import (
	"context"
	"sync"
)

type QRMock struct {
	lock sync.Mutex

	RenderFunc func(ctx context.Context, token string) ([]byte, error)

	RenderedTokens []string
}

func (m *QRMock) Render(ctx context.Context, token string) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.RenderedTokens = append(m.RenderedTokens, token)

	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, token)
	}

	return []byte("png-bytes-for-" + token), nil
}
