package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher 监听配置文件变化并热更新策略参数。
// 只有 bot 段的数值参数允许热更；凭证与 symbol 改动需要重启。
type Watcher struct {
	Path     string
	Cooldown time.Duration // 避免编辑器连环写触发频繁重载
	Log      *zap.Logger

	lastReload time.Time
}

// Start 阻塞监听直到 ctx 取消；每次合法变更调用 onUpdate。
func (w *Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	if w.Cooldown <= 0 {
		w.Cooldown = 5 * time.Second
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.Path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// 只处理写入和创建事件
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleChange(onUpdate)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.Log != nil {
				w.Log.Warn("config watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleChange(onUpdate func(AppConfig)) {
	if time.Since(w.lastReload) < w.Cooldown {
		return
	}
	cfg, err := LoadWithEnvOverrides(w.Path)
	if err != nil {
		// 改错了就保持旧参数继续跑
		if w.Log != nil {
			w.Log.Warn("config reload rejected", zap.Error(err))
		}
		return
	}
	w.lastReload = time.Now()
	if w.Log != nil {
		w.Log.Info("config reloaded",
			zap.Float64("minFullBps", cfg.Bot.MinFullBps),
			zap.Float64("maxFullBps", cfg.Bot.MaxFullBps),
			zap.Float64("kATR", cfg.Bot.KATR))
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}
}
