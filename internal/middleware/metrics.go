package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder はHTTPリクエストメトリクス記録のためのインターフェース。
// metrics.Collectorがこれを満たす。
type RequestRecorder interface {
	RecordRequest(method, path string, statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はリクエストごとにメトリクスを記録するミドルウェアを返す。
// パスラベルにはルーティングパターンではなく実パスを使う（エンドポイント数が固定のため）。
func NewMetricsMiddleware(recorder RequestRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordRequest(r.Method, r.URL.Path, rec.statusCode, time.Since(start))
		})
	}
}
