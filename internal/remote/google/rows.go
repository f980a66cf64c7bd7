package google

import (
	"fmt"
	"strings"

	"shopledger/internal/core"
)

var header = []string{"id", "userId", "date", "description", "amount", "type", "category"}

// sheetRow is a parsed row. index is zero-based within the sheet, header
// included. badAmount marks an amount cell that did not parse.
type sheetRow struct {
	index     int64
	tx        core.Transaction
	badAmount bool
}

// parseRows maps a values matrix to transactions. Columns are located by the
// header row; a missing header falls back to the default column order. Rows
// without an id or owner are skipped. Rows whose amount does not parse are
// kept but marked, so they still count for id uniqueness and deletion.
func parseRows(values [][]interface{}) []sheetRow {
	if len(values) == 0 {
		return nil
	}
	cols := map[string]int{}
	start := 0
	first := toStrings(values[0])
	if indexOf(first, "id") != -1 && indexOf(first, "userId") != -1 {
		for i, h := range first {
			cols[strings.ToLower(strings.TrimSpace(h))] = i
		}
		start = 1
	} else {
		for i, h := range header {
			cols[strings.ToLower(h)] = i
		}
	}

	var out []sheetRow
	for i := start; i < len(values); i++ {
		row := toStrings(values[i])
		get := func(name string) string {
			idx, ok := cols[strings.ToLower(name)]
			if !ok {
				return ""
			}
			return strings.TrimSpace(safeGet(row, idx))
		}
		t := core.Transaction{
			ID:          get("id"),
			UserID:      get("userId"),
			Date:        get("date"),
			Description: get("description"),
			Type:        core.TxType(get("type")),
			Category:    get("category"),
		}
		if t.ValidatePersisted() != nil {
			continue
		}
		r := sheetRow{index: int64(i), tx: t}
		if m, err := core.ParseMoney(strings.ReplaceAll(get("amount"), ",", ".")); err == nil {
			r.tx.Amount = m
		} else {
			r.badAmount = true
		}
		out = append(out, r)
	}
	return out
}

func formatRow(t core.Transaction) []interface{} {
	return []interface{}{t.ID, t.UserID, t.Date, t.Description, t.Amount.String(), string(t.Type), t.Category}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
