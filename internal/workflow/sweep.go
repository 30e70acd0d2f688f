// Copyright 2026 fanjia1024
// Session lifecycle management (periodic TTL sweep)

package workflow

import (
	"context"
	"time"

	"assist-platform/internal/storage/kv"
	"assist-platform/pkg/log"
)

// SweepConfig 过期会话清扫配置。正确性不依赖清扫：读路径已做惰性删除，
// 清扫只是为长期不被读到的记录兜底回收空间
type SweepConfig struct {
	Enable   bool
	Interval time.Duration
}

// Sweep 执行一轮过期会话回收。后端不支持枚举（如 redis，TTL 原生生效）时直接返回
func Sweep(ctx context.Context, store kv.Store, logger *log.Logger) error {
	lister, ok := store.(kv.Lister)
	if !ok {
		return nil
	}
	// Keys 枚举时各驱动跳过或顺带清理已过期记录，这里只需触发一轮
	keys, err := lister.Keys(ctx, keyPrefix)
	if err != nil {
		return err
	}
	logger.Debug("会话清扫完成", "live", len(keys))
	return nil
}

// RunSweeper 启动即清扫一轮，之后按固定间隔循环，ctx 取消时退出。
// 短生命周期的 CLI 进程活不到第一个 tick，首轮清扫保证开启后每次调用都能回收过期记录。
// Enable=false 时不启动
func RunSweeper(ctx context.Context, cfg SweepConfig, store kv.Store, logger *log.Logger) {
	if !cfg.Enable || cfg.Interval <= 0 {
		return
	}
	if err := Sweep(ctx, store, logger); err != nil {
		logger.Warn("会话清扫失败", "error", err)
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := Sweep(ctx, store, logger); err != nil {
				logger.Warn("会话清扫失败", "error", err)
			}
		}
	}
}
