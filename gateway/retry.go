package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// WithRetry 以指数退避重试 fn，仅针对连接类错误；
// 应用层错误立即返回，由调用方决定是否跳过本周期。
func WithRetry(ctx context.Context, log *zap.Logger, attempts int, base time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 3
	}
	if base <= 0 {
		base = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !IsConnectivity(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		log.Warn("connectivity error, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base << i):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
