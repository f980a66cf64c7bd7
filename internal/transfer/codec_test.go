package transfer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Description: "বিক্রি", Amount: core.Money{Cents: 150050}, Type: core.Income, Category: "বিক্রয়", Date: "2024-06-01", UserID: "u"},
		{ID: "2", Description: "Rent – June", Amount: core.Money{Cents: 4000}, Type: core.Expense, Category: "rent", Date: "2024-06-02", UserID: "u"},
		{ID: "3", Description: "日本語 ✓ emoji 🧾", Amount: core.Money{Cents: 1}, Type: core.Expense, Category: "", Date: "2024-06-03", UserID: "u"},
	}
}

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
}

func TestCodeRoundTrip(t *testing.T) {
	in := sample()
	code, err := EncodeCode(in)
	require.NoError(t, err)

	for _, r := range code {
		require.Less(t, r, rune(128), "code must be ASCII")
	}

	out, err := DecodeCode(code)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBengaliDescriptionSurvivesCode(t *testing.T) {
	code, err := EncodeCode([]core.Transaction{{ID: "x", Description: "বিক্রি", Amount: core.Money{Cents: 100}, Type: core.Income, Date: "2024-01-01", UserID: "u"}})
	require.NoError(t, err)
	out, err := DecodeCode(code)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "বিক্রি", out[0].Description)
}

func TestFileRoundTrip(t *testing.T) {
	in := sample()
	data, err := EncodeFile(in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"id\": \"1\""), "file body must be indented JSON in field order")
	assert.Contains(t, string(data), "বিক্রি", "file body is not base64")

	out, err := DecodeFile(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeRefusesEmpty(t *testing.T) {
	_, err := EncodeCode(nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
	_, err = EncodeFile([]core.Transaction{})
	var ee *EncodingError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "There are no transactions to export.", ee.UserMessage())
}

func TestDecodeCodeFailures(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name       string
		code       string
		validation bool
	}{
		{"empty", "   ", false},
		{"not base64", "%%%not-base64%%%", false},
		{"not json", b64("hello"), false},
		{"object not list", b64(`{"id":"1"}`), true},
		{"string not list", b64(`"abc"`), true},
		{"list of numbers", b64(`[1,2]`), true},
		{"bad type", b64(`[{"id":"1","description":"x","amount":1,"type":"Gift","date":"2024-01-01"}]`), true},
		{"negative amount", b64(`[{"id":"1","description":"x","amount":-5,"type":"Income","date":"2024-01-01"}]`), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := DecodeCode(tt.code)
			assert.Nil(t, out)
			var de *DecodingError
			require.True(t, errors.As(err, &de), "got %T", err)
			assert.Equal(t, "Invalid code.", de.UserMessage())

			var ve *ValidationError
			assert.Equal(t, tt.validation, errors.As(err, &ve))
		})
	}
}

func TestDecodeCodeToleratesWhitespace(t *testing.T) {
	code, err := EncodeCode(sample())
	require.NoError(t, err)
	wrapped := "\n" + code[:10] + "\n " + code[10:] + "\n"
	out, err := DecodeCode(wrapped)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestDecodeFileAcceptsOlderClientFiles(t *testing.T) {
	// numeric amounts as written by older clients, string amounts too
	data := []byte(`[
  {"id":"a","description":"Sale","amount":100,"type":"Income","category":"sales","date":"2024-06-01","userId":"old"},
  {"id":"b","description":"Tea","amount":"12.5","type":"Expense","category":"other","date":"2024-06-02","userId":"old"}
]`)
	out, err := DecodeFile(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(10000), out[0].Amount.Cents)
	assert.Equal(t, int64(1250), out[1].Amount.Cents)

	_, err = DecodeFile([]byte(`{"transactions":[]}`))
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = DecodeFile([]byte(`[{`))
	var de *DecodingError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Invalid backup file.", de.UserMessage())
}

func TestStamp(t *testing.T) {
	in := sample()
	out := Stamp(in, "me", counter())
	require.Len(t, out, len(in))
	for i := range out {
		assert.Equal(t, fmt.Sprintf("new-%d", i+1), out[i].ID)
		assert.Equal(t, "me", out[i].UserID)
		assert.Equal(t, in[i].Description, out[i].Description)
		assert.Equal(t, in[i].Amount, out[i].Amount)
	}
	assert.Equal(t, "1", in[0].ID, "input must not be modified")
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "ShopBackup_2024-03-07.json", FileName(now))
}
