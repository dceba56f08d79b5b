package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StubProvider is an in-memory provider for development and tests. Settle
// plays the part of the customer finishing (or failing) the hosted checkout.
type StubProvider struct {
	mu          sync.Mutex
	sessions    map[string]SessionRequest
	txs         map[string][]TransactionSummary
	searchCalls int
	FailCreate  error
	FailSearch  error
}

func NewStubProvider() *StubProvider {
	return &StubProvider{
		sessions: make(map[string]SessionRequest),
		txs:      make(map[string][]TransactionSummary),
	}
}

func (s *StubProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return nil, s.FailCreate
	}
	id := "stub_sess_" + uuid.NewString()
	s.sessions[req.ExternalReference] = req
	return &Session{
		ID:          id,
		RedirectURL: fmt.Sprintf("https://checkout.stub.local/session/%s", id),
	}, nil
}

func (s *StubProvider) SearchPayments(ctx context.Context, reference string, limit int) ([]TransactionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	if s.FailSearch != nil {
		return nil, s.FailSearch
	}
	list := append([]TransactionSummary(nil), s.txs[reference]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Settle records a provider-side transaction for reference.
func (s *StubProvider) Settle(reference, txID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.sessions[reference]
	s.txs[reference] = append(s.txs[reference], TransactionSummary{
		ID:                txID,
		Status:            status,
		ExternalReference: reference,
		Amount:            req.Amount,
		CreatedAt:         time.Now(),
	})
}

// Session returns the request a checkout session was created with.
func (s *StubProvider) Session(reference string) (SessionRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.sessions[reference]
	return req, ok
}

func (s *StubProvider) SearchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCalls
}
