package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"carezone/internal/metrics"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux     *http.ServeMux
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRouter(m *metrics.Metrics, logger *zap.Logger) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		metrics: m,
		logger:  logger,
	}
}

// Handle 注册路由，按 pattern 记录请求指标
func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, r.instrument(pattern, h))
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) instrument(pattern string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, req)
		r.metrics.RecordHTTPRequest(req.Method, pattern, strconv.Itoa(rec.status), time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// RegisterDeviceRoutes 设备上报（位置 / 跌倒）
func (r *Router) RegisterDeviceRoutes(h *DeviceHandler) {
	r.Handle("/api/sentlocation", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethods(w, req, http.MethodPost, http.MethodPut) {
			return
		}
		h.SentLocation(w, req)
	})
	r.Handle("/api/sentFall", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethods(w, req, http.MethodPost, http.MethodPut) {
			return
		}
		h.SentFall(w, req)
	})
}

// RegisterCaretakerRoutes 照护人位置
func (r *Router) RegisterCaretakerRoutes(h *CaretakerLocationHandler) {
	r.Handle("/api/caretakerLocation", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost, http.MethodPut:
			h.Record(w, req)
		case http.MethodGet:
			h.GetLatest(w, req)
		default:
			allowMethods(w, req, http.MethodGet, http.MethodPost, http.MethodPut)
		}
	})
}

// RegisterExtendedHelpRoutes 扩展求助查询与导出
func (r *Router) RegisterExtendedHelpRoutes(h *ExtendedHelpHandler) {
	r.Handle("/api/extended-help/export", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethods(w, req, http.MethodGet) {
			return
		}
		h.Export(w, req)
	})

	// extended-help/{id}
	r.Handle("/api/extended-help/", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethods(w, req, http.MethodGet) {
			return
		}
		id := strings.TrimPrefix(req.URL.Path, "/api/extended-help/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetCase(w, req, id)
	})
}

// RegisterLINERoutes LINE webhook
func (r *Router) RegisterLINERoutes(h *LINEWebhookHandler) {
	r.Handle("/line/webhook", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethods(w, req, http.MethodPost) {
			return
		}
		h.ServeHTTP(w, req)
	})
}

// RegisterOpsRoutes 健康检查与指标
func (r *Router) RegisterOpsRoutes() {
	r.HandleHandler("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	}))
	if r.metrics != nil {
		r.HandleHandler("/metrics", r.metrics.Handler())
	}
}
