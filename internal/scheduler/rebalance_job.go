package scheduler

import (
	"context"

	"github.com/joshwigginton/composer-signals-alpaca/internal/rebalance"
)

// RebalanceJob adapts the rebalance service to the Job interface
type RebalanceJob struct {
	service *rebalance.Service
}

// NewRebalanceJob creates the scheduled rebalance job
func NewRebalanceJob(service *rebalance.Service) *RebalanceJob {
	return &RebalanceJob{service: service}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance"
}

// Run executes one rebalance pass. Per-order rejections are already handled
// inside the service; only fatal run errors surface here.
func (j *RebalanceJob) Run() error {
	_, err := j.service.Run(context.Background())
	return err
}
