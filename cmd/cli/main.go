package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"assist-platform/internal/engine"
	"assist-platform/internal/workflow"
	"assist-platform/pkg/config"
	"assist-platform/pkg/metrics"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("coassist cli 0.1.0")
	case "config":
		runConfig()
	case "backend":
		runBackend()
	case "session":
		runSession(args)
	case "cache":
		runCache(args)
	case "metrics":
		runMetrics()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: coassist <command> [args]")
	fmt.Println("  version                 - 显示版本")
	fmt.Println("  config                  - 显示配置概要")
	fmt.Println("  backend                 - 显示选定的存储后端")
	fmt.Println("  session start <tool> <step> [total]   - 新开会话，输出 session_id")
	fmt.Println("  session continue <id> <step> [--done] - 续传一步；--done 标记终止")
	fmt.Println("  session show <id>       - 查看会话状态")
	fmt.Println("  session complete <id>   - 完成并清理会话")
	fmt.Println("  cache stats             - 缓存命中统计")
	fmt.Println("  metrics                 - 导出 Prometheus 文本格式指标")
}

func newEngine(ctx context.Context) *engine.Engine {
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	e, err := engine.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化引擎失败: %v\n", err)
		os.Exit(1)
	}
	e.StartSweeper(ctx)
	return e
}

func runConfig() {
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("storage.type: %s\n", cfg.Storage.Type)
	fmt.Printf("storage.redis.addr: %s\n", cfg.Storage.Redis.Addr)
	fmt.Printf("storage.file_root: %s\n", cfg.Storage.FileRoot)
	fmt.Printf("session.ttl: %s\n", cfg.Session.TTL)
	fmt.Printf("cache.ttl: %s\n", cfg.Cache.TTL)
	fmt.Printf("retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
}

func runBackend() {
	ctx := context.Background()
	e := newEngine(ctx)
	defer e.Close()
	fmt.Printf("storage backend: %s\n", e.Store.Name())
}

func runSession(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: coassist session <start|continue|show|complete> ...")
		os.Exit(1)
	}
	ctx := context.Background()
	e := newEngine(ctx)
	defer e.Close()

	switch args[0] {
	case "start":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coassist session start <tool> <step> [total]")
			os.Exit(1)
		}
		total := 1
		if len(args) > 3 {
			if n, err := strconv.Atoi(args[3]); err == nil {
				total = n
			}
		}
		s, err := e.Sessions.Start(ctx, args[1], args[2], total)
		if err != nil {
			fmt.Fprintf(os.Stderr, "session start 失败: %v\n", err)
			os.Exit(1)
		}
		// session_id 可安全回显给用户，供手动续传
		fmt.Printf("session_id: %s\nstep: %d/%d\n", s.ID, s.StepNumber, s.TotalSteps)
	case "continue":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coassist session continue <id> <step> [--done]")
			os.Exit(1)
		}
		nextRequired := true
		if len(args) > 3 && args[3] == "--done" {
			nextRequired = false
		}
		s, err := e.Sessions.Continue(ctx, args[1], args[2], nextRequired, 0)
		if err != nil {
			reportSessionError(err)
			os.Exit(1)
		}
		fmt.Printf("session_id: %s\nstep: %d/%d\nnext_step_required: %v\n", s.ID, s.StepNumber, s.TotalSteps, s.NextStepRequired)
	case "show":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: coassist session show <id>")
			os.Exit(1)
		}
		s, err := e.Sessions.Get(ctx, args[1])
		if err != nil {
			reportSessionError(err)
			os.Exit(1)
		}
		fmt.Printf("session_id: %s\ntool: %s\nstep: %d/%d\nnext_step_required: %v\n", s.ID, s.ToolName, s.StepNumber, s.TotalSteps, s.NextStepRequired)
		for _, f := range s.Findings {
			fmt.Printf("  [%d] %s\n", f.StepNumber, f.Content)
		}
	case "complete":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: coassist session complete <id>")
			os.Exit(1)
		}
		if err := e.Sessions.Complete(ctx, args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "session complete 失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("ok")
	default:
		fmt.Fprintln(os.Stderr, "Usage: coassist session <start|continue|show|complete> ...")
		os.Exit(1)
	}
}

func reportSessionError(err error) {
	switch {
	case errors.Is(err, workflow.ErrSessionNotFound):
		fmt.Fprintf(os.Stderr, "%v\n会话不存在或已过期，请用 session start 新开会话\n", err)
	case errors.Is(err, workflow.ErrWorkflowTerminal):
		fmt.Fprintf(os.Stderr, "%v\n该会话已终止，请用 session start 新开会话\n", err)
	default:
		fmt.Fprintf(os.Stderr, "会话操作失败: %v\n", err)
	}
}

func runCache(args []string) {
	if len(args) < 1 || args[0] != "stats" {
		fmt.Fprintln(os.Stderr, "Usage: coassist cache stats")
		os.Exit(1)
	}
	// 指标是进程级计数器，这里直接导出全量文本供人工过滤
	if err := metrics.WritePrometheus(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "导出指标失败: %v\n", err)
		os.Exit(1)
	}
}

func runMetrics() {
	if err := metrics.WritePrometheus(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "导出指标失败: %v\n", err)
		os.Exit(1)
	}
}
