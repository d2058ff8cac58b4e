package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/agenthands/exoseek/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keplerHeader = "koi_period,koi_duration_err1,koi_duration_err2,koi_prad,koi_prad_err1,koi_prad_err2,koi_insol_err1,koi_model_snr,koi_steff_err1,koi_steff_err2"

func csvWithRows(header string, n int) []byte {
	var b strings.Builder
	b.WriteString(header + "\n")
	cols := len(strings.Split(header, ","))
	for i := 0; i < n; i++ {
		cells := make([]string, cols)
		for j := range cells {
			cells[j] = fmt.Sprintf("%d.%d", i, j)
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}
	return []byte(b.String())
}

func TestIngestRowCountAndOrder(t *testing.T) {
	in := NewIngestor(schema.Default(), 0)

	for _, n := range []int{0, 1, 3, 50, 51, 120} {
		res, err := in.Ingest(csvWithRows(keplerHeader, n))
		require.NoError(t, err, n)

		want := n
		if want > 50 {
			want = 50
		}
		assert.Len(t, res.Records, want, n)
		assert.Equal(t, n, res.TotalRows)
		assert.Equal(t, n > 50, res.Truncated())
		for i, rec := range res.Records {
			v, ok := rec["koi_period"].Float()
			require.True(t, ok)
			assert.Equal(t, float64(i), v)
		}
	}
}

func TestIngestConfigurableMaxRows(t *testing.T) {
	in := NewIngestor(schema.Default(), 5)
	res, err := in.Ingest(csvWithRows(keplerHeader, 9))
	require.NoError(t, err)
	assert.Len(t, res.Records, 5)
	assert.Equal(t, 9, res.TotalRows)
}

func TestIngestMissingColumns(t *testing.T) {
	header := strings.Replace(keplerHeader, ",koi_model_snr", "", 1)
	in := NewIngestor(schema.Default(), 0)

	res, err := in.Ingest(csvWithRows(header, 3))
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrMissingColumns)

	var mc *MissingColumnsError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, []string{"koi_model_snr"}, mc.Columns)
	assert.Equal(t, "CSV is missing columns: koi_model_snr", err.Error())
}

func TestIngestMissingSeveralColumnsInSchemaOrder(t *testing.T) {
	in := NewIngestor(schema.Default(), 0)
	_, err := in.Ingest([]byte("koi_steff_err2,koi_period,koi_prad,extra\n1,2,3,4\n"))

	var mc *MissingColumnsError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, []string{
		"koi_model_snr", "koi_duration_err1", "koi_duration_err2",
		"koi_prad_err1", "koi_prad_err2", "koi_insol_err1", "koi_steff_err1",
	}, mc.Columns)
}

func TestIngestParseFailure(t *testing.T) {
	in := NewIngestor(schema.Default(), 0)

	_, err := in.Ingest(nil)
	assert.ErrorIs(t, err, ErrParse)

	_, err = in.Ingest([]byte("\ufeff"))
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, "Failed to parse CSV: file is empty", err.Error())
}

func TestIngestStrayQuotes(t *testing.T) {
	data := keplerHeader + ",kepler_name\n" +
		"1,2,3 \"x\",4,5,6,7,8,9,10,Kepler-22 \"b\"\n" +
		"11,12,13,14,15,16,17,18,19,20,Kepler-452 b\n"
	in := NewIngestor(schema.Default(), 0)

	res, err := in.Ingest([]byte(data))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.TotalRows)

	rec := res.Records[0]
	assert.Equal(t, StringCell(`Kepler-22 "b"`), rec["kepler_name"])
	assert.Equal(t, StringCell(`3 "x"`), rec["koi_duration_err2"])
	assert.Equal(t, NumberCell(4), rec["koi_prad"])

	vec := Normalize(schema.Default(), rec)
	assert.Equal(t, 0.0, vec["koi_duration_err2"])
	assert.Equal(t, 1.0, vec["koi_period"])
	assert.Equal(t, 10.0, vec["koi_steff_err2"])

	assert.Equal(t, NumberCell(11), res.Records[1]["koi_period"])
}

func TestIngestCellInference(t *testing.T) {
	data := keplerHeader + ",name,flag\n" +
		"1.5,,abc,-2e3,.5,7,true,8,9,10,Kepler-22 b,FALSE\n"
	in := NewIngestor(schema.Default(), 0)

	res, err := in.Ingest([]byte(data))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]

	assert.Equal(t, NumberCell(1.5), rec["koi_period"])
	assert.Equal(t, Missing, rec["koi_duration_err1"].Kind)
	assert.Equal(t, StringCell("abc"), rec["koi_duration_err2"])
	assert.Equal(t, NumberCell(-2000), rec["koi_prad"])
	assert.Equal(t, NumberCell(0.5), rec["koi_prad_err1"])
	assert.Equal(t, BoolCell(true), rec["koi_insol_err1"])
	assert.Equal(t, StringCell("Kepler-22 b"), rec["name"])
	assert.Equal(t, BoolCell(false), rec["flag"])
}

func TestIngestRaggedAndBlankRows(t *testing.T) {
	data := keplerHeader + "\n" +
		"1,2,3\n" +
		"\n" +
		",,,,,,,,,\n" +
		"4,5,6,7,8,9,10,11,12,13,14,15\n"
	in := NewIngestor(schema.Default(), 0)

	res, err := in.Ingest([]byte(data))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, NumberCell(3), res.Records[0]["koi_duration_err2"])
	assert.Equal(t, Missing, res.Records[0]["koi_steff_err2"].Kind)
	assert.Equal(t, NumberCell(13), res.Records[1]["koi_steff_err2"])
	assert.Len(t, res.Records[1], 10)
}

func TestIngestHeaderCleanup(t *testing.T) {
	header := "\ufeff koi_period ," + strings.TrimPrefix(keplerHeader, "koi_period,")
	in := NewIngestor(schema.Default(), 0)

	res, err := in.Ingest([]byte(header + "\n1,2,3,4,5,6,7,8,9,10\n"))
	require.NoError(t, err)
	assert.Equal(t, "koi_period", res.Header[0])
	assert.Equal(t, NumberCell(1), res.Records[0]["koi_period"])
}

func TestIngestUTF16(t *testing.T) {
	text := keplerHeader + "\n1,2,3,4,5,6,7,8,9,10\n"
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, r := range text {
		buf.WriteByte(byte(r))
		buf.WriteByte(0)
	}

	res, err := NewIngestor(schema.Default(), 0).Ingest(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, NumberCell(10), res.Records[0]["koi_steff_err2"])
}

func TestInferCell(t *testing.T) {
	cases := map[string]Cell{
		"":       {},
		"  ":     {},
		"42":     NumberCell(42),
		"-0.25":  NumberCell(-0.25),
		"1E-3":   NumberCell(0.001),
		"7.":     NumberCell(7),
		"TRUE":   BoolCell(true),
		"NaN":    StringCell("NaN"),
		"+5":     StringCell("+5"),
		"1,000":  StringCell("1,000"),
		"0x10":   StringCell("0x10"),
		"12 kpc": StringCell("12 kpc"),
	}
	for raw, want := range cases {
		assert.Equal(t, want, InferCell(raw), raw)
	}
}
