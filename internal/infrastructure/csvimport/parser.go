// Package csvimport reads spreadsheet exports into header-keyed rows and
// collects per-row problems for bulk catalog loads.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	ErrMissingHeader   = errors.New("CSV file missing header row")
)

const encodingProbe = 4096

// Parser reads a CSV document whose first record names the columns
type Parser struct {
	reader    *csv.Reader
	headers   []string
	headerMap map[string]int
	line      int
}

// Option configures a Parser
type Option func(*csv.Reader)

// WithDelimiter sets the field delimiter. The default is a comma.
func WithDelimiter(d rune) Option {
	return func(r *csv.Reader) { r.Comma = d }
}

// NewParser wraps r, strips a UTF-8 byte order mark and reads the header.
// Header names are normalized with NormalizeHeader.
func NewParser(r io.Reader, opts ...Option) (*Parser, error) {
	buf := bufio.NewReader(r)

	bom, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	probe, err := buf.Peek(encodingProbe)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(strings.TrimSpace(string(probe))) == 0 {
		return nil, ErrEmptyFile
	}
	if len(probe) == encodingProbe {
		probe = trimPartialRune(probe)
	}
	if !utf8.Valid(probe) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(buf)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(cr)
	}

	p := &Parser{reader: cr, headerMap: make(map[string]int)}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) readHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.line = 1

	for i, h := range record {
		name := NormalizeHeader(h)
		p.headers = append(p.headers, name)
		if _, dup := p.headerMap[name]; !dup && name != "" {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}
	return nil
}

// Headers returns the normalized header names in file order
func (p *Parser) Headers() []string {
	return p.headers
}

// HasHeader reports whether a column is present
func (p *Parser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// Missing returns the required columns absent from the header
func (p *Parser) Missing(required ...string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data record keyed by header. Line is the 1-based line number
// in the file, counting the header as line 1.
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of a column, or "" when absent
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty reports whether every field is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next record, or io.EOF when the file is exhausted
func (p *Parser) Next() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.line++
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", p.line, err)
	}

	row := &Row{Line: p.line, Data: make(map[string]string, len(p.headerMap))}
	for name, i := range p.headerMap {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	return row, nil
}

// Rows reads the remaining records, skipping blank ones. A malformed
// record stops the read and is returned with the rows before it.
func (p *Parser) Rows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// NormalizeHeader lowercases a header and joins its words with
// underscores, so "Cost Price" and "costPrice" both read as "cost_price"
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	var b strings.Builder
	prevLower := false
	pendingSep := false
	for _, r := range h {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			pendingSep = b.Len() > 0
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			pendingSep = true
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(unicode.ToLower(r))
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return b.String()
}

// trimPartialRune drops a multi-byte sequence cut off by the probe window
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return b[:len(b)-i]
		}
	}
	return b
}
