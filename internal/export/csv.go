package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// CSV writes one transaction per row under a fixed header.
type CSV struct{}

var csvHeader = []string{"ID", "Date", "Category", "Kind", "Amount", "Description"}

// Header names accepted on import, lowercased. The legacy export used
// "Type" and localized column names.
var csvColumnAliases = map[string]string{
	"id":          "id",
	"date":        "date",
	"дата":        "date",
	"category":    "category",
	"категория":   "category",
	"kind":        "kind",
	"type":        "kind",
	"тип":         "kind",
	"amount":      "amount",
	"сумма":       "amount",
	"description": "description",
	"описание":    "description",
}

// Extension implements Codec.
func (CSV) Extension() string { return "csv" }

// Encode implements Codec.
func (CSV) Encode(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := cw.Write([]string{
			tx.ID(),
			tx.Date().Format(model.DateLayout),
			tx.Category(),
			tx.Kind().String(),
			tx.Amount().String(),
			tx.Description(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode implements Codec. The first malformed row fails the whole file.
func (CSV) Decode(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv header: %w", common.ErrInvalidArgument, err)
	}

	columns, err := csvColumns(header)
	if err != nil {
		return nil, err
	}

	var txs []model.Transaction
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidArgument, err)
		}
		line, _ := cr.FieldPos(0)
		if isBlankRecord(record) {
			continue
		}

		tx, err := decodeCSVRecord(record, columns)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func csvColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := csvColumnAliases[key]; ok {
			columns[canonical] = i
		}
	}
	for _, required := range []string{"date", "category", "kind", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: csv header is missing the %s column", common.ErrInvalidArgument, required)
		}
	}
	return columns, nil
}

func decodeCSVRecord(record []string, columns map[string]int) (model.Transaction, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := time.Parse(model.DateLayout, field("date"))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: invalid date %q", common.ErrInvalidArgument, field("date"))
	}
	kind, err := model.ParseKind(field("kind"))
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := parseAmount(field("amount"))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: invalid amount %q", common.ErrInvalidArgument, field("amount"))
	}

	return model.NewTransaction(field("category"), amount, kind, field("description"),
		model.WithID(field("id")), model.WithDate(date))
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseAmount accepts a decimal comma when no decimal point is present.
func parseAmount(s string) (decimal.Decimal, error) {
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}
