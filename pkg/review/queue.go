// Package review escalates documents out of automated processing into the
// human officer queue, and applies the signed overrides officers return.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// Queue accepts escalation tickets for human review.
type Queue interface {
	Submit(ctx context.Context, ticket contracts.ReviewTicket) (string, error)
}

// NewTicket builds a ticket for a document leaving automated processing.
func NewTicket(documentID, reason string, extracted contracts.ExtractedData) contracts.ReviewTicket {
	return contracts.ReviewTicket{
		TicketID:      uuid.New().String(),
		DocumentID:    documentID,
		Reason:        reason,
		ExtractedData: extracted,
		CreatedAt:     time.Now().UTC(),
	}
}

// RedisQueue pushes tickets onto a Redis list consumed by the officer
// dashboard workers.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue on the given list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "review:pending"
	}
	return &RedisQueue{client: client, key: key}
}

// Submit enqueues the ticket and returns its id as the queue ack.
func (q *RedisQueue) Submit(ctx context.Context, ticket contracts.ReviewTicket) (string, error) {
	data, err := json.Marshal(ticket)
	if err != nil {
		return "", fmt.Errorf("review: marshal ticket: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return "", fmt.Errorf("review: enqueue ticket: %w", err)
	}
	return ticket.TicketID, nil
}

// MemoryQueue is a transient Queue for tests.
type MemoryQueue struct {
	mu      sync.Mutex
	tickets []contracts.ReviewTicket

	// FailNext makes the next Submit fail.
	FailNext error
}

// NewMemoryQueue creates an in-memory review queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Submit stores the ticket.
func (q *MemoryQueue) Submit(_ context.Context, ticket contracts.ReviewTicket) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.FailNext != nil {
		err := q.FailNext
		q.FailNext = nil
		return "", err
	}
	q.tickets = append(q.tickets, ticket)
	return ticket.TicketID, nil
}

// Tickets returns a copy of the submitted tickets.
func (q *MemoryQueue) Tickets() []contracts.ReviewTicket {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]contracts.ReviewTicket, len(q.tickets))
	copy(out, q.tickets)
	return out
}
