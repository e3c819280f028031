package resolve

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"quizsync/internal/config"
	"quizsync/internal/logging"
	"quizsync/internal/records"
	"quizsync/internal/services"
	"quizsync/internal/services/crm"
)

// Directory exposes the CRM lookups the resolver needs.
type Directory interface {
	SearchContact(ctx context.Context, email string) (crm.Contact, error)
	FindSession(ctx context.Context, sessionID string) (crm.Session, error)
}

// Entity is an attendance record with both of its CRM identities attached.
type Entity struct {
	Record          records.AttendanceRecord
	ContactID       string
	SessionEntityID string
	SessionDate     string
}

// Resolver maps attendance records to CRM contact and session entities.
type Resolver struct {
	directory   Directory
	concurrency int
	logger      *slog.Logger
}

// New creates a resolver bounded by the configured lookup concurrency.
func New(cfg *config.Config, directory Directory, logger *slog.Logger) *Resolver {
	concurrency := cfg.Sync.ResolveConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Resolver{
		directory:   directory,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "resolve"),
	}
}

// Resolve looks up both CRM identities for each record. The contact and
// session lookups of a record run concurrently; total in-flight lookups
// across all records are bounded by the resolver's semaphore. Records whose
// lookups miss or fail are dropped and logged, never retried within the run.
// Survivors keep the input order.
func (r *Resolver) Resolve(ctx context.Context, recs []records.AttendanceRecord) ([]Entity, int, error) {
	if len(recs) == 0 {
		return nil, 0, nil
	}

	logger := logging.WithContext(ctx, r.logger)
	sem := make(chan struct{}, r.concurrency)
	results := make([]*Entity, len(recs))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, rec := range recs {
		group.Go(func() error {
			var contact crm.Contact
			var session crm.Session
			var contactErr, sessionErr error

			pair, pairCtx := errgroup.WithContext(groupCtx)
			pair.Go(func() error {
				if err := acquire(pairCtx, sem); err != nil {
					return err
				}
				defer release(sem)
				contact, contactErr = r.directory.SearchContact(pairCtx, rec.Email)
				return nil
			})
			pair.Go(func() error {
				if err := acquire(pairCtx, sem); err != nil {
					return err
				}
				defer release(sem)
				session, sessionErr = r.directory.FindSession(pairCtx, rec.SessionID)
				return nil
			})
			if err := pair.Wait(); err != nil {
				return err
			}

			if contactErr != nil || sessionErr != nil {
				logDrop(logger, rec, contactErr, sessionErr)
				return nil
			}
			results[i] = &Entity{
				Record:          rec,
				ContactID:       contact.ID,
				SessionEntityID: session.ID,
				SessionDate:     session.DateTime,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, 0, services.Wrap(services.ErrTimeout, "resolve", "resolve entities", "lookup cancelled", err)
	}

	resolved := make([]Entity, 0, len(recs))
	for _, entity := range results {
		if entity != nil {
			resolved = append(resolved, *entity)
		}
	}
	dropped := len(recs) - len(resolved)

	logger.Info("entities resolved",
		logging.Int("records", len(recs)),
		logging.Int("resolved", len(resolved)),
		logging.Int("dropped", dropped))
	return resolved, dropped, nil
}

func acquire(ctx context.Context, sem chan struct{}) error {
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func release(sem chan struct{}) {
	<-sem
}

func logDrop(logger *slog.Logger, rec records.AttendanceRecord, contactErr, sessionErr error) {
	reason := "lookup failed"
	err := errors.Join(contactErr, sessionErr)
	if errors.Is(err, services.ErrNotFound) {
		reason = "entity not found"
	}
	logger.Warn("record dropped",
		logging.String("reason", reason),
		logging.String(logging.FieldEmail, rec.Email),
		logging.String(logging.FieldSessionID, rec.SessionID),
		logging.Error(err))
}
