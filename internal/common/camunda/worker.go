// internal/common/camunda/worker.go
package camunda

import (
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"assistance-portal/internal/common/config"
	"assistance-portal/internal/common/logger"
)

// JobHandler processes one activated job and completes or fails it itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Worker is an open job worker for one task type.
type Worker struct {
	worker worker.JobWorker
	logger logger.Logger
}

// NewWorker opens a job worker for taskType on client.
func NewWorker(client zbc.Client, taskType string, wc config.WorkerConfig, handler JobHandler, log logger.Logger) *Worker {
	maxJobsActive := wc.MaxJobsActive
	if maxJobsActive <= 0 {
		maxJobsActive = 5
	}
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(maxJobsActive)
	if timeout := config.GetDuration(wc.Timeout); timeout > 0 {
		step = step.Timeout(timeout)
	}

	w := &Worker{
		worker: step.Open(),
		logger: log.WithFields(map[string]interface{}{"taskType": taskType}),
	}
	w.logger.Info("worker started", map[string]interface{}{
		"maxJobsActive": maxJobsActive,
		"timeout_ms":    wc.Timeout,
	})
	return w
}

// Stop closes the job worker and waits for in-flight jobs. The shared client
// is closed by its owner.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
