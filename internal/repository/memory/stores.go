package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-medical-appointment/internal/domain/entity"
	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
)

type AuditLogStore struct {
	mu   sync.Mutex
	logs []entity.AuditLog
}

var _ domainRepo.AuditLogRepository = (*AuditLogStore)(nil)

func NewAuditLogStore() *AuditLogStore {
	return &AuditLogStore{}
}

func (s *AuditLogStore) Create(ctx context.Context, log *entity.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.ID = int64(len(s.logs) + 1)
	log.CreatedAt = time.Now()
	s.logs = append(s.logs, *log)
	return nil
}

func (s *AuditLogStore) FindAll(ctx context.Context, limit, offset int) ([]entity.AuditLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := append([]entity.AuditLog(nil), s.logs...)
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID > logs[j].ID })
	total := int64(len(logs))
	start := min(offset, len(logs))
	end := len(logs)
	if limit > 0 {
		end = min(start+limit, len(logs))
	}
	return logs[start:end], total, nil
}

func (s *AuditLogStore) FindByID(ctx context.Context, id int64) (*entity.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.logs {
		if l.ID == id {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

// Actions lists recorded actions in insertion order.
func (s *AuditLogStore) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := make([]string, 0, len(s.logs))
	for _, l := range s.logs {
		actions = append(actions, l.Action)
	}
	return actions
}

type sessionKey struct {
	kind        string
	principalID uuid.UUID
	tokenID     string
}

type SessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]time.Time
}

var _ domainRepo.SessionRepository = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[sessionKey]time.Time)}
}

func (s *SessionStore) Store(ctx context.Context, kind string, principalID uuid.UUID, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionKey{kind, principalID, tokenID}] = time.Now().Add(ttl)
	return nil
}

func (s *SessionStore) Exists(ctx context.Context, kind string, principalID uuid.UUID, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.sessions[sessionKey{kind, principalID, tokenID}]
	return ok && time.Now().Before(expiry), nil
}

func (s *SessionStore) Delete(ctx context.Context, kind string, principalID uuid.UUID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionKey{kind, principalID, tokenID})
	return nil
}

func (s *SessionStore) DeleteAll(ctx context.Context, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.sessions {
		if key.principalID == principalID {
			delete(s.sessions, key)
		}
	}
	return nil
}

type PaymentOrderStore struct {
	mu     sync.Mutex
	orders map[string]entity.PaymentOrder
}

var _ domainRepo.PaymentOrderRepository = (*PaymentOrderStore)(nil)

func NewPaymentOrderStore() *PaymentOrderStore {
	return &PaymentOrderStore{orders: make(map[string]entity.PaymentOrder)}
}

func (s *PaymentOrderStore) Save(ctx context.Context, order *entity.PaymentOrder, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.OrderID] = *order
	return nil
}

func (s *PaymentOrderStore) Find(ctx context.Context, orderID string) (*entity.PaymentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.orders[orderID]; ok {
		return &o, nil
	}
	return nil, nil
}

// Expire drops orderID as if its TTL had run out.
func (s *PaymentOrderStore) Expire(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orders, orderID)
}
