package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

var (
	initOnce sync.Once

	taskOpsCounter       metric.Int64Counter
	notificationsCounter metric.Int64Counter
	realtimeEventCounter metric.Int64Counter
	realtimeConnGauge    metric.Int64ObservableGauge
	onlineUsersGauge     metric.Int64ObservableGauge

	mu              sync.Mutex
	realtimeConns   int64
	onlineUsersFunc func() int64
)

// InitMetrics creates the instruments. Safe to call multiple times; only runs once.
func InitMetrics(ctx context.Context) error {
	var err error
	initOnce.Do(func() {
		m := Meter()
		taskOpsCounter, err = m.Int64Counter("tasks_operations_total", metric.WithDescription("Task mutations by operation and outcome"))
		if err != nil {
			return
		}
		notificationsCounter, err = m.Int64Counter("notifications_created_total", metric.WithDescription("Notifications persisted by type"))
		if err != nil {
			return
		}
		realtimeEventCounter, err = m.Int64Counter("realtime_events_total", metric.WithDescription("Realtime events delivered by event name"))
		if err != nil {
			return
		}
		realtimeConnGauge, err = m.Int64ObservableGauge("realtime_connections", metric.WithDescription("Open realtime connections"))
		if err != nil {
			return
		}
		onlineUsersGauge, err = m.Int64ObservableGauge("realtime_online_users", metric.WithDescription("Users with at least one realtime connection"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			mu.Lock()
			conns := realtimeConns
			online := onlineUsersFunc
			mu.Unlock()
			o.ObserveInt64(realtimeConnGauge, conns)
			if online != nil {
				o.ObserveInt64(onlineUsersGauge, online())
			}
			return nil
		}, realtimeConnGauge, onlineUsersGauge)
	})
	return err
}

// RecordTaskOp records one task mutation (create, update, delete) and its outcome.
func RecordTaskOp(ctx context.Context, op, outcome string) {
	if taskOpsCounter == nil {
		return
	}
	taskOpsCounter.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(op), AttrOutcome.String(outcome)))
}

func RecordNotification(ctx context.Context, notificationType string) {
	if notificationsCounter == nil {
		return
	}
	notificationsCounter.Add(ctx, 1, metric.WithAttributes(AttrType.String(notificationType)))
}

func RecordRealtimeEvent(ctx context.Context, event string) {
	if realtimeEventCounter == nil {
		return
	}
	realtimeEventCounter.Add(ctx, 1, metric.WithAttributes(AttrEvent.String(event)))
}

// AddRealtimeConnection adds 1 to the connection gauge (call on connect).
func AddRealtimeConnection() {
	mu.Lock()
	realtimeConns++
	mu.Unlock()
}

// RemoveRealtimeConnection subtracts 1 from the connection gauge (call on disconnect).
func RemoveRealtimeConnection() {
	mu.Lock()
	realtimeConns--
	if realtimeConns < 0 {
		realtimeConns = 0
	}
	mu.Unlock()
}

// SetOnlineUsersFunc registers the source of the online users gauge.
func SetOnlineUsersFunc(fn func() int64) {
	mu.Lock()
	onlineUsersFunc = fn
	mu.Unlock()
}

func realtimeConnections() int64 {
	mu.Lock()
	defer mu.Unlock()
	return realtimeConns
}
