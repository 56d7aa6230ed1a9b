// Package taxtable loads statutory withholding tables from YAML and serves
// bracket lookups to the payroll tax engine.
package taxtable

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	// ErrTableNotFound indicates an unknown table identifier.
	ErrTableNotFound = errors.New("taxtable: table not found")
	// ErrColumnNotFound indicates an unknown column within a table.
	ErrColumnNotFound = errors.New("taxtable: column not found")
)

// Bracket taxes monthly gross up to UpTo with a fixed amount. The open top
// bracket (no UpTo) taxes with Rate instead.
type Bracket struct {
	UpTo decimal.Decimal
	Tax  decimal.Decimal
	Rate decimal.Decimal
}

// Set holds every loaded table keyed by table id and column.
type Set struct {
	tables map[string]map[int][]Bracket
}

type rawFile struct {
	Tables map[string]struct {
		Columns map[int][]struct {
			UpTo string `yaml:"upto"`
			Tax  string `yaml:"tax"`
			Rate string `yaml:"rate"`
		} `yaml:"columns"`
	} `yaml:"tables"`
}

// LoadFile reads a YAML tax-table file from disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxtable: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Set from YAML bytes.
func Parse(data []byte) (*Set, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("taxtable: parse: %w", err)
	}
	set := &Set{tables: make(map[string]map[int][]Bracket)}
	for name, table := range raw.Tables {
		cols := make(map[int][]Bracket, len(table.Columns))
		for col, rawBrackets := range table.Columns {
			brackets := make([]Bracket, 0, len(rawBrackets))
			for i, rb := range rawBrackets {
				b, err := parseBracket(rb.UpTo, rb.Tax, rb.Rate)
				if err != nil {
					return nil, fmt.Errorf("taxtable: table %s column %d bracket %d: %w", name, col, i, err)
				}
				brackets = append(brackets, b)
			}
			sort.Slice(brackets, func(i, j int) bool {
				// Open brackets (no UpTo) sort last.
				if brackets[i].UpTo.IsZero() != brackets[j].UpTo.IsZero() {
					return !brackets[i].UpTo.IsZero()
				}
				return brackets[i].UpTo.LessThan(brackets[j].UpTo)
			})
			cols[col] = brackets
		}
		set.tables[name] = cols
	}
	return set, nil
}

func parseBracket(upTo, tax, rate string) (Bracket, error) {
	var b Bracket
	var err error
	if upTo != "" {
		if b.UpTo, err = decimal.NewFromString(upTo); err != nil {
			return Bracket{}, fmt.Errorf("upto: %w", err)
		}
	}
	if tax != "" {
		if b.Tax, err = decimal.NewFromString(tax); err != nil {
			return Bracket{}, fmt.Errorf("tax: %w", err)
		}
	}
	if rate != "" {
		if b.Rate, err = decimal.NewFromString(rate); err != nil {
			return Bracket{}, fmt.Errorf("rate: %w", err)
		}
	}
	return b, nil
}

// Lookup implements the payroll TableLookup contract: the first bracket
// whose UpTo covers the gross wins; the open top bracket taxes by rate.
func (s *Set) Lookup(table string, column int, gross decimal.Decimal) (decimal.Decimal, error) {
	cols, ok := s.tables[table]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	brackets, ok := cols[column]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: table %s column %d", ErrColumnNotFound, table, column)
	}
	for _, b := range brackets {
		if b.UpTo.IsZero() {
			return gross.Mul(b.Rate).Round(2), nil
		}
		if gross.LessThanOrEqual(b.UpTo) {
			return b.Tax, nil
		}
	}
	return decimal.Zero, nil
}
