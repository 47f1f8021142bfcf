package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceSelf = "self"
	SourceScan = "scan"
)

// Metrics 的所有方法都允许在 nil 上调用，测试中直接传 nil 即可
type Metrics struct {
	Registrations     *prometheus.CounterVec
	Rejections        *prometheus.CounterVec
	WeeklySubmissions prometheus.Counter
	RemindersQueued   prometheus.Counter
	OperationLatency  *prometheus.HistogramVec
}

// New 向默认 registry 注册指标，每个进程只能调用一次
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_registrations_total",
			Help: "成功的用餐登记次数",
		}, []string{"source"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_rejections_total",
			Help: "被业务规则拒绝的请求次数",
		}, []string{"operation", "code"}),

		WeeklySubmissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "meal_weekly_submissions_total",
			Help: "成功提交的每周选餐次数",
		}),

		RemindersQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "meal_selection_reminders_queued_total",
			Help: "已放入邮件队列的选餐提醒数量",
		}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meal_operation_duration_seconds",
			Help:    "核心操作的耗时",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncRegistration(source string) {
	if m != nil {
		m.Registrations.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) IncRejection(operation, code string) {
	if m != nil {
		m.Rejections.WithLabelValues(operation, code).Inc()
	}
}

func (m *Metrics) IncWeeklySubmission() {
	if m != nil {
		m.WeeklySubmissions.Inc()
	}
}

func (m *Metrics) AddRemindersQueued(n int) {
	if m != nil {
		m.RemindersQueued.Add(float64(n))
	}
}

func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
