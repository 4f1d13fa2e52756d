// Package memory is an in-process implementation of every repository. It
// backs the service tests and the memory database driver. Transactions are
// serialized and roll back by restoring a snapshot. Access outside a
// transaction waits for the open one to finish, so a rollback only ever
// discards that transaction's own writes.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
)

type state struct {
	users         map[string]user.User
	tickets       map[string]ticket.Ticket
	history       []ticket.StatusHistoryEntry
	audit         []audit.Entry
	sessions      map[string]attendance.Session
	activities    map[string]activity.Activity
	stages        map[string]activity.ActivityStage
	notifications map[string]notification.Notification
}

func newState() state {
	return state{
		users:         make(map[string]user.User),
		tickets:       make(map[string]ticket.Ticket),
		sessions:      make(map[string]attendance.Session),
		activities:    make(map[string]activity.Activity),
		stages:        make(map[string]activity.ActivityStage),
		notifications: make(map[string]notification.Notification),
	}
}

func (s state) clone() state {
	c := state{
		users:         make(map[string]user.User, len(s.users)),
		tickets:       make(map[string]ticket.Ticket, len(s.tickets)),
		history:       append([]ticket.StatusHistoryEntry(nil), s.history...),
		audit:         append([]audit.Entry(nil), s.audit...),
		sessions:      make(map[string]attendance.Session, len(s.sessions)),
		activities:    make(map[string]activity.Activity, len(s.activities)),
		stages:        make(map[string]activity.ActivityStage, len(s.stages)),
		notifications: make(map[string]notification.Notification, len(s.notifications)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tickets {
		v.LocationHistory = append([]ticket.LocationSnapshot(nil), v.LocationHistory...)
		c.tickets[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.activities {
		c.activities[k] = v
	}
	for k, v := range s.stages {
		c.stages[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	return c
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

// txn marks a context as belonging to an open transaction of store. Contexts
// derived from it outlive the transaction, so open is checked on every use.
type txn struct {
	store *Store
	open  atomic.Bool
}

func (s *Store) inTx(ctx context.Context) bool {
	t, ok := ctx.Value(txKey{}).(*txn)
	return ok && t.store == s && t.open.Load()
}

// lock takes the write lock for one repository call.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// rlock takes the read lock for one repository call. Outside a transaction
// it waits for the open one, so uncommitted writes are never observed.
func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.RLock()
		return s.mu.RUnlock
	}
	s.txMu.Lock()
	s.mu.RLock()
	return func() {
		s.mu.RUnlock()
		s.txMu.Unlock()
	}
}

// WithinTx implements database.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &txn{store: s}
	t.open.Store(true)
	defer t.open.Store(false)

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	restore := func() {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		restore()
		return err
	}
	return nil
}

// AuditEntries returns a copy of the audit log.
func (s *Store) AuditEntries() []audit.Entry {
	defer s.rlock(context.Background())()
	return append([]audit.Entry(nil), s.data.audit...)
}

func (s *Store) Users() user.UserRepository { return userRepo{s} }

func (s *Store) Tickets() ticket.TicketRepository { return ticketRepo{s} }

func (s *Store) History() ticket.HistoryRepository { return historyRepo{s} }

func (s *Store) Audit() audit.Writer { return auditRepo{s} }

func (s *Store) Sessions() attendance.SessionRepository { return sessionRepo{s} }

func (s *Store) Activities() activity.ActivityRepository { return activityRepo{s} }

func (s *Store) Stages() activity.StageRepository { return stageRepo{s} }

func (s *Store) Notifications() notification.Repository { return notificationRepo{s} }

func (s *Store) Reports() report.Repository { return reportRepo{s} }
