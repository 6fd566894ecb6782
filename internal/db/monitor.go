package db

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"
)

var mongoCommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "crm_mongo_command_duration_seconds",
	Help:    "Duration of MongoDB commands issued by the customers store.",
	Buckets: []float64{.001, .003, .005, .01, .025, .05, .1, .2, .3, .5, .75, 1, 2, 5, 10},
}, []string{"database", "command", "status"})

// mongoMonitor times every command and logs it at debug level.
type mongoMonitor struct {
	logger   *zap.Logger
	database string
}

func (m *mongoMonitor) CommandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: m.Succeeded,
		Failed:    m.Failed,
	}
}

func (m *mongoMonitor) Succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	m.observe(evt.CommandName, "ok", evt.Duration.Seconds())
}

func (m *mongoMonitor) Failed(_ context.Context, evt *event.CommandFailedEvent) {
	m.observe(evt.CommandName, "error", evt.Duration.Seconds())
	m.logger.Debug("mongo command failed",
		zap.String("command", evt.CommandName),
		zap.String("failure", evt.Failure),
	)
}

func (m *mongoMonitor) observe(command, status string, seconds float64) {
	mongoCommandDuration.WithLabelValues(m.database, command, status).Observe(seconds)
	m.logger.Debug("mongo command",
		zap.String("command", command),
		zap.String("status", status),
		zap.Float64("duration_seconds", seconds),
	)
}
