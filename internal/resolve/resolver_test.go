package resolve

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizsync/internal/logging"
	"quizsync/internal/records"
	"quizsync/internal/services"
	"quizsync/internal/services/crm"
	"quizsync/internal/testsupport"
)

type fakeDirectory struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	delay       time.Duration

	missingContacts map[string]bool
	missingSessions map[string]bool
	failSessions    map[string]bool
}

func (d *fakeDirectory) enter() {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
}

func (d *fakeDirectory) leave() {
	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()
}

func (d *fakeDirectory) SearchContact(_ context.Context, email string) (crm.Contact, error) {
	d.enter()
	defer d.leave()
	if d.missingContacts[email] {
		return crm.Contact{}, services.Wrap(services.ErrNotFound, "crm", "search contact", email, nil)
	}
	return crm.Contact{ID: "contact-" + email}, nil
}

func (d *fakeDirectory) FindSession(_ context.Context, sessionID string) (crm.Session, error) {
	d.enter()
	defer d.leave()
	if d.missingSessions[sessionID] {
		return crm.Session{}, services.Wrap(services.ErrNotFound, "crm", "find session", sessionID, nil)
	}
	if d.failSessions[sessionID] {
		return crm.Session{}, services.Wrap(services.ErrTransport, "crm", "find session", sessionID, nil)
	}
	return crm.Session{ID: "session-" + sessionID, DateTime: "2024-03-01T14:30:00+00:00"}, nil
}

func TestResolveAttachesBothIdentities(t *testing.T) {
	directory := &fakeDirectory{}
	resolver := New(testsupport.NewConfig(t), directory, logging.NewNop())

	recs := []records.AttendanceRecord{
		{Email: "jane@x.com", SessionID: "42", CorrectCount: 7},
	}
	entities, dropped, err := resolver.Resolve(context.Background(), recs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dropped != 0 || len(entities) != 1 {
		t.Fatalf("entities=%d dropped=%d", len(entities), dropped)
	}
	got := entities[0]
	if got.ContactID != "contact-jane@x.com" || got.SessionEntityID != "session-42" {
		t.Fatalf("identities mismatch: %+v", got)
	}
	if got.SessionDate != "2024-03-01T14:30:00+00:00" {
		t.Fatalf("session date = %q", got.SessionDate)
	}
	if got.Record.CorrectCount != 7 {
		t.Fatalf("record not carried: %+v", got.Record)
	}
}

func TestResolveBoundsConcurrency(t *testing.T) {
	directory := &fakeDirectory{delay: 5 * time.Millisecond}
	cfg := testsupport.NewConfig(t)
	cfg.Sync.ResolveConcurrency = 3
	resolver := New(cfg, directory, logging.NewNop())

	recs := make([]records.AttendanceRecord, 20)
	for i := range recs {
		recs[i] = records.AttendanceRecord{
			Email:     fmt.Sprintf("user%d@x.com", i),
			SessionID: "42",
		}
	}
	if _, _, err := resolver.Resolve(context.Background(), recs); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if directory.maxInFlight > 3 {
		t.Fatalf("lookup concurrency reached %d, limit 3", directory.maxInFlight)
	}
}

func TestResolveDropsUnresolvedAndKeepsOrder(t *testing.T) {
	directory := &fakeDirectory{
		missingContacts: map[string]bool{"ghost@x.com": true},
		failSessions:    map[string]bool{"99": true},
	}
	resolver := New(testsupport.NewConfig(t), directory, logging.NewNop())

	recs := []records.AttendanceRecord{
		{Email: "a@x.com", SessionID: "42"},
		{Email: "ghost@x.com", SessionID: "42"},
		{Email: "b@x.com", SessionID: "99"},
		{Email: "c@x.com", SessionID: "42"},
	}
	entities, dropped, err := resolver.Resolve(context.Background(), recs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	if len(entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(entities))
	}
	if entities[0].Record.Email != "a@x.com" || entities[1].Record.Email != "c@x.com" {
		t.Fatalf("order not preserved: %+v", entities)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	resolver := New(testsupport.NewConfig(t), &fakeDirectory{}, logging.NewNop())
	entities, dropped, err := resolver.Resolve(context.Background(), nil)
	if err != nil || entities != nil || dropped != 0 {
		t.Fatalf("unexpected result: %v %d %v", entities, dropped, err)
	}
}
