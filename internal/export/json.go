package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// JSON writes an indented array of transaction objects.
type JSON struct{}

type jsonTransaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Extension implements Codec.
func (JSON) Extension() string { return "json" }

// Encode implements Codec.
func (JSON) Encode(w io.Writer, txs []model.Transaction) error {
	out := make([]jsonTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, jsonTransaction{
			ID:          tx.ID(),
			Date:        tx.Date().Format(model.DateLayout),
			Category:    tx.Category(),
			Kind:        tx.Kind().String(),
			Amount:      tx.Amount(),
			Description: tx.Description(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// Decode implements Codec. The first malformed element fails the whole document.
func (JSON) Decode(r io.Reader) ([]model.Transaction, error) {
	var in []jsonTransaction
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", common.ErrInvalidArgument, err)
	}

	txs := make([]model.Transaction, 0, len(in))
	for i, rec := range in {
		date, err := time.Parse(model.DateLayout, rec.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: invalid date %q", common.ErrInvalidArgument, i, rec.Date)
		}
		kind, err := model.ParseKind(rec.Kind)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		tx, err := model.NewTransaction(rec.Category, rec.Amount, kind, rec.Description,
			model.WithID(rec.ID), model.WithDate(date))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
