package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		tasksCreated,
		tasksFinished,
		segmentsProcessed,
		tasksSwept,
	)
}

var (
	tasksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "summarize_tasks_created_total",
			Help: "Summarization tasks created.",
		},
	)

	tasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarize_tasks_finished_total",
			Help: "Summarization runs finished, by final task status.",
		},
		[]string{"status"},
	)

	segmentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarize_segments_total",
			Help: "Per-segment summarization outcomes.",
		},
		[]string{"outcome"}, // completed | failed
	)

	tasksSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "summarize_tasks_swept_total",
			Help: "Completed tasks removed by the retention sweep.",
		},
	)
)

func IncTaskCreated() { tasksCreated.Inc() }

func IncTaskFinished(status string) { tasksFinished.WithLabelValues(norm(status)).Inc() }

func IncSegmentCompleted() { segmentsProcessed.WithLabelValues("completed").Inc() }

func IncSegmentFailed() { segmentsProcessed.WithLabelValues("failed").Inc() }

func AddTasksSwept(n int) { tasksSwept.Add(float64(n)) }
