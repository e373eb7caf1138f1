package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/types"
)

const (
	defaultBufferSize = 256
	insertTimeout     = 5 * time.Second
)

type inserter interface {
	Insert(ctx context.Context, row *models.AuditLog) error
}

type pending struct {
	ctx context.Context
	row *models.AuditLog
}

// WriterParams configure the asynchronous audit writer.
type WriterParams struct {
	Repo       inserter
	Logger     *logger.Logger
	BufferSize int
}

// Writer is a fire-and-forget Sink. Entries go through a buffered channel to
// a single goroutine; when the buffer is full the entry is dropped and logged.
type Writer struct {
	repo  inserter
	logg  *logger.Logger
	queue chan pending
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewWriter starts the writer goroutine. Call Close to drain it.
func NewWriter(params WriterParams) (*Writer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	size := params.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	w := &Writer{
		repo:  params.Repo,
		logg:  logg,
		queue: make(chan pending, size),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Record converts the entry and enqueues it without blocking.
func (w *Writer) Record(ctx context.Context, entry Entry) {
	if ctx == nil {
		ctx = context.Background()
	}
	row, err := toRow(ctx, entry)
	if err != nil {
		w.logg.Warn(w.logg.WithField(ctx, "audit_action", entry.Action), "audit entry not serializable: "+err.Error())
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.queue <- pending{ctx: context.WithoutCancel(ctx), row: row}:
	default:
		w.logg.Warn(w.logg.WithField(ctx, "audit_action", entry.Action), "audit buffer full; entry dropped")
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer close(w.done)
	for item := range w.queue {
		ctx, cancel := context.WithTimeout(item.ctx, insertTimeout)
		if err := w.repo.Insert(ctx, item.row); err != nil {
			w.logg.Error(w.logg.WithField(item.ctx, "audit_action", item.row.Action), "audit insert failed", err)
		}
		cancel()
	}
}

func toRow(ctx context.Context, entry Entry) (*models.AuditLog, error) {
	oldValues, err := types.MarshalJSONValue(entry.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := types.MarshalJSONValue(entry.NewValues)
	if err != nil {
		return nil, err
	}
	result := entry.Result
	if !result.IsValid() {
		result = enums.AuditResultSuccess
	}

	row := &models.AuditLog{
		BusinessID: entry.BusinessID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		OldValues:  oldValues,
		NewValues:  newValues,
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
	if entry.EntityID != "" {
		id := entry.EntityID
		row.EntityID = &id
	}
	meta := RequestMetaFrom(ctx)
	if meta.RequestID != "" {
		row.RequestID = &meta.RequestID
	}
	if meta.IP != "" {
		row.IPAddress = &meta.IP
	}
	return row, nil
}
