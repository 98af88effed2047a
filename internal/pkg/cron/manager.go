package cron

import (
	log "log/slog"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/job"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine          *cron.Cron
	tempCleanJob    *job.TempCleanJob
	invoiceSweepJob *job.InvoiceSweepJob
}

func NewCronManager(tempCleanJob *job.TempCleanJob, invoiceSweepJob *job.InvoiceSweepJob) *Manager {
	return &Manager{
		engine:          cron.New(cron.WithSeconds()),
		tempCleanJob:    tempCleanJob,
		invoiceSweepJob: invoiceSweepJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("@hourly", s.tempCleanJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@daily", s.invoiceSweepJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
