package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NodesAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrml_nodes_added_total",
		Help: "Total number of nodes inserted into a scene, labelled by class.",
	}, []string{"class"})

	NodesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mrml_nodes_removed_total",
		Help: "Total number of nodes removed from a scene, labelled by class.",
	}, []string{"class"})

	SingletonMerges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mrml_singleton_merges_total",
		Help: "Total number of added nodes merged into an existing singleton.",
	})

	DelayedReferencesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mrml_delayed_references_resolved_total",
		Help: "Total number of dangling references that resolved when their target was added.",
	})

	Imports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mrml_imports_total",
		Help: "Total number of node batches imported into a scene.",
	})

	ImportRemappedIDs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mrml_import_remapped_ids_total",
		Help: "Total number of imported node IDs that collided and were reassigned.",
	})

	HierarchyRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mrml_hierarchy_rebuilds_total",
		Help: "Total number of hierarchy children index rebuilds.",
	})

	SceneNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mrml_scene_nodes",
		Help: "Number of nodes in the served scene.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mrml_scene_queue_utilization",
		Help: "Scene operation queue fill ratio (0-1).",
	})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mrml_api_request_duration_ms",
		Help:    "HTTP API request latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"method", "status"})
)
