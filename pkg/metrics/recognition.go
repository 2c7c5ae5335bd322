package metrics

import "github.com/prometheus/client_golang/prometheus"

// RecognitionMetrics tracks point transfers and seat reconciliation outcomes.
type RecognitionMetrics struct {
	transfers   *prometheus.CounterVec
	points      prometheus.Counter
	seatSyncs   *prometheus.CounterVec
	seatSyncQue prometheus.Gauge
}

// NewRecognitionMetrics registers the domain counters on the provided registerer.
func NewRecognitionMetrics(reg prometheus.Registerer) *RecognitionMetrics {
	if reg == nil {
		return &RecognitionMetrics{}
	}
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "point_transfers_total",
		Help: "Point transfer attempts by outcome.",
	}, []string{"outcome"})
	points := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "points_transferred_total",
		Help: "Total points moved by successful transfers.",
	})
	seatSyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seat_sync_total",
		Help: "Stripe seat-quantity pushes by outcome.",
	}, []string{"outcome"})
	seatSyncQue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "seat_sync_pending",
		Help: "Unresolved seat sync failures awaiting retry.",
	})
	reg.MustRegister(transfers, points, seatSyncs, seatSyncQue)
	return &RecognitionMetrics{
		transfers:   transfers,
		points:      points,
		seatSyncs:   seatSyncs,
		seatSyncQue: seatSyncQue,
	}
}

// ObserveTransfer records one transfer attempt.
func (m *RecognitionMetrics) ObserveTransfer(outcome string, points int) {
	if m == nil || m.transfers == nil {
		return
	}
	m.transfers.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == "success" && points > 0 {
		m.points.Add(float64(points))
	}
}

// ObserveSeatSync records one Stripe quantity push attempt.
func (m *RecognitionMetrics) ObserveSeatSync(outcome string) {
	if m == nil || m.seatSyncs == nil {
		return
	}
	m.seatSyncs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SetSeatSyncPending reports the current retry backlog size.
func (m *RecognitionMetrics) SetSeatSyncPending(n int) {
	if m == nil || m.seatSyncQue == nil {
		return
	}
	m.seatSyncQue.Set(float64(n))
}
