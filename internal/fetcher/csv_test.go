package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable(t *testing.T) {
	in := "fips,date,cases,deaths\n01001,2020-03-01,10,1\n01001,2020-03-02,15,2\n"
	tbl, err := ReadTable(strings.NewReader(in), TableOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"fips", "date", "cases", "deaths"}, tbl.Header)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "01001", tbl.Col(tbl.Rows[0], "fips"))
	assert.Equal(t, "15", tbl.Col(tbl.Rows[1], "cases"))
}

func TestReadTable_CaseInsensitiveColumns(t *testing.T) {
	in := "STATE,COUNTY,POPESTIMATE2019\n01,001,55869\n"
	tbl, err := ReadTable(strings.NewReader(in), TableOptions{})
	require.NoError(t, err)

	assert.Equal(t, "55869", tbl.Col(tbl.Rows[0], "popestimate2019"))
	assert.Equal(t, "01", tbl.Col(tbl.Rows[0], "State"))
}

func TestReadTable_HasColumns(t *testing.T) {
	in := "fips,date\n01001,2020-03-01\n"
	tbl, err := ReadTable(strings.NewReader(in), TableOptions{})
	require.NoError(t, err)

	assert.NoError(t, tbl.HasColumns("fips", "date"))
	err = tbl.HasColumns("fips", "cases", "deaths")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cases")
	assert.Contains(t, err.Error(), "deaths")
}

func TestReadTable_Latin1(t *testing.T) {
	// "Doña Ana" with ñ as the single Latin-1 byte 0xF1.
	in := "STATE,COUNTY,CTYNAME\n35,013,Do\xf1a Ana County\n"
	tbl, err := ReadTable(strings.NewReader(in), TableOptions{Encoding: EncodingLatin1})
	require.NoError(t, err)

	assert.Equal(t, "Doña Ana County", tbl.Col(tbl.Rows[0], "ctyname"))
}

func TestReadTable_UnsupportedEncoding(t *testing.T) {
	_, err := ReadTable(strings.NewReader("a\n1\n"), TableOptions{Encoding: "utf-16"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")
}

func TestReadTable_Empty(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""), TableOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty table")
}

func TestReadTable_MissingTrailingFields(t *testing.T) {
	in := "fips,date,cases,deaths\n01001,2020-03-01\n"
	tbl, err := ReadTable(strings.NewReader(in), TableOptions{})
	require.NoError(t, err)

	// Short rows read fine; absent columns come back empty.
	assert.Equal(t, "", tbl.Col(tbl.Rows[0], "deaths"))
}
