package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/pkg/logger"
	"github.com/doby176/light/pkg/queue"
)

// JobUsersBackup uploads the users database after an account change.
const JobUsersBackup = "users_backup"

type BackupPayload struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Enqueuer is the part of queue.Queue the service needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// BackupJob copies the users database to object storage.
type BackupJob struct {
	uploader domrepo.BackupUploader
	metrics  domrepo.Metrics
	log      *logger.Logger
}

var _ queue.Job = (*BackupJob)(nil)

func NewBackupJob(uploader domrepo.BackupUploader, m domrepo.Metrics, l *logger.Logger) *BackupJob {
	if l == nil {
		l = logger.Nop()
	}
	return &BackupJob{uploader: uploader, metrics: m, log: l}
}

func (j *BackupJob) Name() string { return "users-db-backup" }

func (j *BackupJob) Type() string { return JobUsersBackup }

func (j *BackupJob) Handle(ctx context.Context, raw json.RawMessage) error {
	p, err := queue.ParsePayload[BackupPayload](raw)
	if err != nil {
		return err
	}
	if p.Path == "" || p.Path == ":memory:" {
		j.record("skipped")
		return nil
	}
	// a missing file will not appear on retry
	if _, err := os.Stat(p.Path); err != nil {
		j.log.Error("users db not found, backup skipped", logger.String("path", p.Path), logger.Error(err))
		j.record("skipped")
		return nil
	}
	if err := j.uploader.Upload(ctx, p.Path); err != nil {
		j.record("failed")
		return fmt.Errorf("upload users db: %w", err)
	}
	j.log.Info("users db uploaded", logger.String("path", p.Path), logger.String("reason", p.Reason))
	j.record("ok")
	return nil
}

func (j *BackupJob) record(status string) {
	if j.metrics != nil {
		j.metrics.RecordJob(JobUsersBackup, status)
	}
}
