package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 CLI 的 metrics 命令导出
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		CacheHitTotal, CacheMissTotal, CacheTokensSavedTotal,
		SessionOpTotal, RetryAttemptTotal,
		StorageBackendSelected,
	)
}

// CacheHitTotal 响应缓存命中总数
var CacheHitTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coassist_cache_hits_total",
		Help: "响应缓存命中总数",
	},
)

// CacheMissTotal 响应缓存未命中总数（含过期与存储故障降级）
var CacheMissTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coassist_cache_misses_total",
		Help: "响应缓存未命中总数",
	},
)

// CacheTokensSavedTotal 缓存命中累计节省的 token 数
var CacheTokensSavedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coassist_cache_tokens_saved_total",
		Help: "缓存命中累计节省的 token 数",
	},
)

// SessionOpTotal 会话操作总数（按操作与结果）
var SessionOpTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coassist_session_ops_total",
		Help: "会话操作总数",
	},
	[]string{"op", "result"}, // start | continue | complete | get ; ok | not_found | terminal | error
)

// RetryAttemptTotal 上游调用重试次数（按 provider）
var RetryAttemptTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coassist_retry_attempts_total",
		Help: "上游调用重试次数",
	},
	[]string{"provider"},
)

// StorageBackendSelected 启动时选定的存储后端（值恒为 1，label 标识后端）
var StorageBackendSelected = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "coassist_storage_backend_selected",
		Help: "启动时选定的存储后端",
	},
	[]string{"backend"}, // redis | file | memory
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 CLI metrics 命令复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
