package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy 重试策略，第 n 次失败后等待 min(MaxDelay, BaseDelay*2^(n-1))
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy 3 次，2s 起步，封顶 30s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// Delay 第 attempt 次失败后的等待时长，attempt 从 1 开始
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Sleeper 可替换的等待函数，ctx 取消时提前返回
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryController 包裹一次同步过程，任何错误（包括 panic）都按策略重试
type RetryController struct {
	policy RetryPolicy
	sleep  Sleeper
	log    *zap.Logger
}

// NewRetryController 创建重试控制器，sleep 为 nil 时使用真实等待
func NewRetryController(policy RetryPolicy, sleep Sleeper, log *zap.Logger) *RetryController {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = contextSleep
	}
	return &RetryController{policy: policy, sleep: sleep, log: log.Named("retry")}
}

// Policy 当前策略
func (r *RetryController) Policy() RetryPolicy {
	return r.policy
}

// Run 执行 fn，失败后按退避重试；用尽后返回包裹最后一次错误的 ErrRetriesExhausted
func (r *RetryController) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = safeCall(ctx, fn)
		if lastErr == nil {
			if attempt > 1 {
				r.log.Info("重试后成功", zap.String("job", name), zap.Int("attempt", attempt))
			}
			return nil
		}

		r.log.Warn("执行失败",
			zap.String("job", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Error(lastErr))

		if attempt == r.policy.MaxAttempts {
			break
		}
		delay := r.policy.Delay(attempt)
		r.log.Info("等待后重试", zap.String("job", name), zap.Duration("delay", delay))
		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: %s 在第 %d 次重试前被取消: %w", ErrRetriesExhausted, name, attempt, lastErr)
		}
	}

	r.log.Error("重试次数用尽", zap.String("job", name), zap.Error(lastErr))
	return fmt.Errorf("%w: %s 失败 %d 次: %w", ErrRetriesExhausted, name, r.policy.MaxAttempts, lastErr)
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}
