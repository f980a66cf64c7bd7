// Package transfer moves transactions between devices: a base64 text code for
// copy and paste, and a pretty-printed JSON backup file.
package transfer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopledger/internal/core"
	"shopledger/internal/ledger"
)

// FileName returns the backup file name for the given day.
func FileName(now time.Time) string {
	return "ShopBackup_" + now.Format(core.DateLayout) + ".json"
}

// EncodeCode serializes txs to compact JSON and base64-encodes the UTF-8
// bytes, so any script in descriptions survives the round trip.
func EncodeCode(txs []core.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", &EncodingError{Err: ErrNothingToExport}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return "", &EncodingError{Err: err}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeFile returns the backup file body: indented JSON, not base64.
func EncodeFile(txs []core.Transaction) ([]byte, error) {
	if len(txs) == 0 {
		return nil, &EncodingError{Err: ErrNothingToExport}
	}
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return data, nil
}

// DecodeCode reverses EncodeCode. Every failure is reported as a
// *DecodingError; a payload that is not a list also unwraps to a
// *ValidationError.
func DecodeCode(code string) ([]core.Transaction, error) {
	code = strings.Join(strings.Fields(code), "")
	if code == "" {
		return nil, &DecodingError{Source: SourceCode, Err: errors.New("empty code")}
	}
	data, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return nil, &DecodingError{Source: SourceCode, Err: err}
	}
	txs, err := decodeRecords(data, SourceCode)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			return nil, &DecodingError{Source: SourceCode, Err: ve}
		}
		return nil, err
	}
	return txs, nil
}

// DecodeFile parses a backup file body.
func DecodeFile(data []byte) ([]core.Transaction, error) {
	return decodeRecords(data, SourceFile)
}

func decodeRecords(data []byte, src Source) ([]core.Transaction, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("\xef\xbb\xbf"))
	if !json.Valid(data) {
		return nil, &DecodingError{Source: src, Err: errors.New("malformed JSON")}
	}
	if len(data) == 0 || data[0] != '[' {
		return nil, &ValidationError{Reason: "expected a list of transactions"}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodingError{Source: src, Err: err}
	}
	txs := make([]core.Transaction, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 || r[0] != '{' {
			return nil, &ValidationError{Reason: fmt.Sprintf("record %d is not an object", i+1)}
		}
		var t core.Transaction
		if err := json.Unmarshal(r, &t); err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("record %d: %v", i+1, err)}
		}
		if !t.Type.IsValid() {
			return nil, &ValidationError{Reason: fmt.Sprintf("record %d: %v", i+1, core.ErrInvalidType)}
		}
		txs = append(txs, t)
	}
	return txs, nil
}

// Stamp gives every record a fresh id and assigns it to userID. Incoming ids
// and owners are discarded. The input is not modified.
func Stamp(txs []core.Transaction, userID string, newID ledger.IDFunc) []core.Transaction {
	if newID == nil {
		newID = ledger.NewID
	}
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		t.ID = newID()
		t.UserID = userID
		out[i] = t
	}
	return out
}
