package store

import (
	"context"
	"fmt"
)

// Stats returns message counts per status and event counts per kind,
// including how many events are still unresolved.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		MessagesByStatus: map[string]int{},
		EventsByKind:     map[string]int{},
	}

	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM outbound_messages GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("querying message counts: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning message count: %w", err)
		}
		st.MessagesByStatus[status] = n
		st.TotalMessages += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message counts: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT event_kind, COUNT(*), COUNT(*) FILTER (WHERE message_id IS NULL)
		FROM delivery_events
		GROUP BY event_kind
	`)
	if err != nil {
		return nil, fmt.Errorf("querying event counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n, unresolved int
		if err := rows.Scan(&kind, &n, &unresolved); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}
		st.EventsByKind[kind] = n
		st.TotalEvents += n
		st.UnresolvedEvents += unresolved
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event counts: %w", err)
	}

	return st, nil
}
