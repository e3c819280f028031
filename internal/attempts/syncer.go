package attempts

import (
	"context"
	"log/slog"
	"strconv"

	"quizsync/internal/config"
	"quizsync/internal/logging"
	"quizsync/internal/resolve"
	"quizsync/internal/services"
	"quizsync/internal/services/crm"
)

// API exposes the CRM attempt operations the syncer needs.
type API interface {
	CountAttempts(ctx context.Context) (int, error)
	AttemptExists(ctx context.Context, contactID, sessionEntityID string) (bool, error)
	UpsertAttempts(ctx context.Context, attempts []crm.Attempt) error
}

// Result summarizes one attempt-sync pass.
type Result struct {
	Created       int
	Skipped       int
	CheckFailures int
	Batches       int
}

// Syncer creates CRM attempt records for resolved entities, batching upserts
// and skipping attempts that already exist.
type Syncer struct {
	api       API
	batchSize int
	logger    *slog.Logger
}

// New creates a syncer with the configured batch size, capped at the CRM's
// bulk limit.
func New(cfg *config.Config, api API, logger *slog.Logger) *Syncer {
	batchSize := cfg.CRM.BatchSize
	if batchSize <= 0 || batchSize > crm.MaxBatchSize {
		batchSize = crm.MaxBatchSize
	}
	return &Syncer{
		api:       api,
		batchSize: batchSize,
		logger:    logging.NewComponentLogger(logger, "attempts"),
	}
}

// Sync stages one attempt per entity and flushes batches as they fill.
//
// Attempt names are sequence numbers seeded from the remote attempt count,
// read once per run, and strictly increasing across batches. The staging loop
// is sequential: each entity is checked for an existing attempt before it is
// staged, in-run duplicates of the same (contact, session) pair collapse to
// the first occurrence, and a failed existence check skips the entity rather
// than guessing either way. A failed batch upsert aborts the run; batches
// already flushed stand.
func (s *Syncer) Sync(ctx context.Context, entities []resolve.Entity) (Result, error) {
	var result Result
	if len(entities) == 0 {
		return result, nil
	}

	logger := logging.WithContext(ctx, s.logger)

	sequence, err := s.api.CountAttempts(ctx)
	if err != nil {
		return result, err
	}

	seen := make(map[string]struct{}, len(entities))
	batch := make([]crm.Attempt, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.api.UpsertAttempts(ctx, batch); err != nil {
			return err
		}
		result.Created += len(batch)
		result.Batches++
		batch = batch[:0]
		return nil
	}

	for _, entity := range entities {
		key := entity.ContactID + "\x00" + entity.SessionEntityID
		if _, dup := seen[key]; dup {
			result.Skipped++
			continue
		}
		seen[key] = struct{}{}

		exists, err := s.api.AttemptExists(ctx, entity.ContactID, entity.SessionEntityID)
		if err != nil {
			result.Skipped++
			result.CheckFailures++
			logger.Warn("existence check failed, entity skipped",
				logging.String(logging.FieldEmail, entity.Record.Email),
				logging.String(logging.FieldSessionID, entity.Record.SessionID),
				logging.Error(err))
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		sequence++
		batch = append(batch, crm.Attempt{
			Name:        strconv.Itoa(sequence),
			ContactID:   entity.ContactID,
			SessionID:   entity.SessionEntityID,
			Score:       entity.Record.CorrectCount,
			SessionDate: entity.SessionDate,
		})
		if len(batch) == s.batchSize {
			if err := flush(); err != nil {
				return result, services.Wrap(services.ErrTransport, "attempts", "flush batch", "", err)
			}
		}
	}

	if err := flush(); err != nil {
		return result, services.Wrap(services.ErrTransport, "attempts", "flush final batch", "", err)
	}

	logger.Info("attempts synced",
		logging.Int("created", result.Created),
		logging.Int("skipped", result.Skipped),
		logging.Int("check_failures", result.CheckFailures),
		logging.Int("batches", result.Batches))
	return result, nil
}
