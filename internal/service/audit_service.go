package service

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/logger"
)

type AuditService struct {
	logChan chan *model.AuditLog
	out     io.WriteCloser
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, signer string, limit int, from, to *time.Time) ([]*model.AuditLog, error)
}

type AuditFileOptions struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewAuditService writes audit entries to a rotating JSONL file and, when repo
// is set, to the database.
func NewAuditService(opts AuditFileOptions, repo AuditRepo) (*AuditService, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "./logs"
	}
	out := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "audit.jsonl"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return newAuditService(out, repo), nil
}

func newAuditService(out io.WriteCloser, repo AuditRepo) *AuditService {
	svc := &AuditService{
		logChan: make(chan *model.AuditLog, 1000), // 缓冲区 1000
		out:     out,
		buffer:  newAuditBuffer(1000),
		repo:    repo,
		done:    make(chan struct{}),
	}

	// 启动消费者 goroutine
	go svc.processLogs()

	return svc
}

func (s *AuditService) Log(entry *model.AuditLog) {
	if s.buffer != nil {
		s.buffer.Add(entry)
	}
	select {
	case s.logChan <- entry:
	default:
		// 缓冲区满，丢弃日志以保护主流程
		logger.Warn("Audit log buffer full, dropping log entry", "id", entry.ID)
	}
}

func (s *AuditService) List(ctx context.Context, signer string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, signer, limit, from, to)
		if err == nil {
			return records, nil
		}
		logger.LogError(ctx, err, "Audit repo list failed, serving from memory")
	}
	if s.buffer == nil {
		return nil, nil
	}
	return s.buffer.List(signer, limit, from, to), nil
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	encoder := json.NewEncoder(s.out)
	for entry := range s.logChan {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				logger.Error("Failed to write audit log to DB", "error", err)
			}
		}
		if err := encoder.Encode(entry); err != nil {
			logger.Error("Failed to write audit log", "error", err)
		}
	}
}

// Close drains queued entries and closes the audit file.
func (s *AuditService) Close() {
	close(s.logChan)
	<-s.done
	s.out.Close()
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns the newest entries first.
func (b *auditBuffer) List(signer string, limit int, from, to *time.Time) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if signer != "" && entry.Signer != signer {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
