package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/davidleathers/guardian-watch/internal/domain/errors"
	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
)

// TimestampLayout is the reference timestamp encoding, interpreted in the
// source's local time zone.
const TimestampLayout = "2006-01-02 15:04:05"

const recordFields = 4

// CSVSource reads transactions from a comma-separated file: one record per
// line as user_id, amount, timestamp, merchant_name, with the header line
// skipped. Malformed records surface as validation-class errors so the
// ingestion loop can skip them without aborting.
type CSVSource struct {
	file   *os.File
	reader *csv.Reader
	loc    *time.Location
}

// NewCSVSource opens the file and positions past the header.
func NewCSVSource(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewExternalError("transaction source", "opening source file").WithCause(err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // field count checked per record
	r.TrimLeadingSpace = true

	s := &CSVSource{file: f, reader: r, loc: time.Local}

	// Header line is ignored. An empty file is just an exhausted source.
	if _, err := r.Read(); err != nil && err != io.EOF {
		f.Close()
		return nil, apperrors.NewExternalError("transaction source", "reading header").WithCause(err)
	}

	return s, nil
}

// Next returns the next transaction, io.EOF at end of input, a
// validation-class error for a malformed record, or an external-class error
// for an I/O failure.
func (s *CSVSource) Next(ctx context.Context) (ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Transaction{}, err
	}

	record, err := s.reader.Read()
	if err != nil {
		if err == io.EOF {
			return ledger.Transaction{}, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return ledger.Transaction{}, malformed(pe.Line, pe.Err.Error())
		}
		return ledger.Transaction{}, apperrors.NewExternalError("transaction source", "reading record").WithCause(err)
	}
	// FieldPos stays exact when a quoted field spans physical lines.
	line, _ := s.reader.FieldPos(0)

	return s.parse(line, record)
}

func (s *CSVSource) parse(line int, record []string) (ledger.Transaction, error) {
	if len(record) != recordFields {
		return ledger.Transaction{}, malformed(line, fmt.Sprintf("expected %d fields, got %d", recordFields, len(record)))
	}

	userID := strings.TrimSpace(record[0])

	amount, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return ledger.Transaction{}, malformed(line, fmt.Sprintf("invalid amount %q", record[1]))
	}

	timestamp, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(record[2]), s.loc)
	if err != nil {
		return ledger.Transaction{}, malformed(line, fmt.Sprintf("invalid timestamp %q", record[2]))
	}

	merchant := strings.TrimSpace(record[3])

	tx, err := ledger.NewTransaction(userID, amount, timestamp, merchant)
	if err != nil {
		return ledger.Transaction{}, malformed(line, err.Error())
	}
	return tx, nil
}

func malformed(line int, reason string) error {
	return apperrors.NewValidationError("MALFORMED_RECORD",
		fmt.Sprintf("line %d: %s", line, reason))
}

// Close releases the underlying file. Idempotent.
func (s *CSVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
