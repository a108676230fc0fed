package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
)

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

// payloadRows yields one []byte column per row.
type payloadRows struct {
	testRowsBase
	payloads [][]byte
	pos      int
	closed   bool
}

func (r *payloadRows) Next() bool {
	if r.pos >= len(r.payloads) {
		return false
	}
	r.pos++
	return true
}

func (r *payloadRows) Scan(dest ...any) error {
	if len(dest) != 1 {
		return fmt.Errorf("expected 1 destination, got %d", len(dest))
	}
	ptr, ok := dest[0].(*[]byte)
	if !ok {
		return fmt.Errorf("unexpected destination %T", dest[0])
	}
	*ptr = append([]byte(nil), r.payloads[r.pos-1]...)
	return nil
}

func (r *payloadRows) Err() error { return nil }

func (r *payloadRows) Close() { r.closed = true }

type execCall struct {
	query string
	args  []any
}

// stubDB records statements and serves stored payload rows. Statements must
// carry a valid marker just like with the real runner.
type stubDB struct {
	rows      [][]byte
	calls     []execCall
	failOn    string
	txBegun   int
	committed int
}

func (s *stubDB) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if err := infra.ValidateMarker(query); err != nil {
		return pgconn.CommandTag{}, err
	}
	if s.failOn != "" && strings.Contains(query, s.failOn) {
		return pgconn.CommandTag{}, fmt.Errorf("boom")
	}
	s.calls = append(s.calls, execCall{query: query, args: args})
	return pgconn.CommandTag{}, nil
}

func (s *stubDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (s *stubDB) Query(_ context.Context, query string, _ ...any) (pgx.Rows, error) {
	if err := infra.ValidateMarker(query); err != nil {
		return nil, err
	}
	return &payloadRows{payloads: s.rows}, nil
}

func (s *stubDB) WithTx(_ context.Context, fn func(infra.SQLExecutor) error) error {
	s.txBegun++
	before := len(s.calls)
	if err := fn(s); err != nil {
		s.calls = s.calls[:before]
		return err
	}
	s.committed++
	return nil
}

var _ infra.TxExecutor = (*stubDB)(nil)
