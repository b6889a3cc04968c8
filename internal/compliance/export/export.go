// Package export writes a run's results as newline-delimited JSON while they
// stream to the sink, plus the run summary as a JSON document.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"shelfaudit/internal/compliance/batch"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
)

// Record is one exported line.
type Record struct {
	Period string `json:"period"`
	models.CustomerResult
}

// Sink tees every written batch into w after next accepted it, so the export
// never contains results the store rejected.
type Sink struct {
	next ports.Sink

	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
	n   int
}

func NewSink(next ports.Sink, w io.Writer) *Sink {
	buf := bufio.NewWriter(w)
	return &Sink{next: next, buf: buf, enc: json.NewEncoder(buf)}
}

func (s *Sink) Write(ctx context.Context, period models.Period, results []models.CustomerResult) error {
	if s.next != nil {
		if err := s.next.Write(ctx, period, results); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		if err := s.enc.Encode(Record{Period: period.String(), CustomerResult: r}); err != nil {
			return fmt.Errorf("export customer %s: %w", r.Customer.CustomerID, err)
		}
		s.n++
	}
	return nil
}

// Count is the number of exported customers.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Flush drains buffered lines to the underlying writer.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

// WriteSummary writes summary as indented JSON.
func WriteSummary(w io.Writer, summary *batch.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}
