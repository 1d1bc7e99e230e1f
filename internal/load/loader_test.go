package load

import (
	"path/filepath"
	"testing"

	"github.com/ppiankov/qcacontra/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func TestLoadDataset_CSV(t *testing.T) {
	l := NewLoader(model.InputConfig{}, nil)

	ds, err := l.LoadDataset(testdata("lipset.csv"))
	require.NoError(t, err)

	assert.Equal(t, []string{"DEV", "URB", "LIT", "IND", "STB", "SURV"}, ds.Columns)
	require.Len(t, ds.Cases, 20)
	assert.Equal(t, "A", ds.Cases[0].Label)
	assert.Equal(t, "Q", ds.Cases[16].Label)
	assert.InDelta(t, 0.28, ds.Cases[16].Values["SURV"], 1e-9)
	assert.Equal(t, testdata("lipset.csv"), ds.Source)
}

func TestParseDataset_LabelColumn(t *testing.T) {
	data := []byte("X,name,Y\n0.2,first,0.4\n0.9,second,0.1\n")
	l := NewLoader(model.InputConfig{LabelColumn: "name"}, nil)

	ds, err := l.ParseDataset("in.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, ds.Columns)
	assert.Equal(t, "second", ds.Cases[1].Label)
	assert.Equal(t, map[string]float64{"X": 0.9, "Y": 0.1}, ds.Cases[1].Values)
}

func TestParseDataset_TSVSkipsBlankLines(t *testing.T) {
	data := []byte("case\tX\tY\na\t0.1\t0.2\n\t\t\nb\t1\t0\n")
	ds, err := NewLoader(model.InputConfig{}, nil).ParseDataset("in.tsv", data)
	require.NoError(t, err)
	require.Len(t, ds.Cases, 2)
	assert.Equal(t, "b", ds.Cases[1].Label)
}

func TestParseDataset_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		data   string
		cfg    model.InputConfig
		want   error
	}{
		{"duplicate label", "d.csv", "case,Y\na,0.1\na,0.2\n", model.InputConfig{}, ErrDuplicateLabel},
		{"not a number", "d.csv", "case,Y\na,high\n", model.InputConfig{}, ErrMalformed},
		{"empty cell", "d.csv", "case,X,Y\na,,0.3\n", model.InputConfig{}, ErrMalformed},
		{"short row", "d.csv", "case,X,Y\na,0.3\n", model.InputConfig{}, ErrMalformed},
		{"missing label", "d.csv", "case,Y\n,0.3\n", model.InputConfig{}, ErrMalformed},
		{"unknown label column", "d.csv", "case,Y\na,0.3\n", model.InputConfig{LabelColumn: "id"}, ErrMalformed},
		{"duplicate column", "d.csv", "case,Y,Y\na,0.3,0.4\n", model.InputConfig{}, ErrMalformed},
		{"empty file", "d.csv", "", model.InputConfig{}, ErrMalformed},
		{"json duplicate", "d.json", `{"columns":["Y"],"cases":[{"label":"a","values":{"Y":0.1}},{"label":"a","values":{"Y":0.2}}]}`, model.InputConfig{}, ErrDuplicateLabel},
		{"json no columns", "d.json", `{"cases":[]}`, model.InputConfig{}, ErrMalformed},
		{"unknown extension", "d.sav", "", model.InputConfig{}, ErrUnsupportedFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader(tc.cfg, nil).ParseDataset(tc.source, []byte(tc.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseDataset_OutOfRangeScoresAreKept(t *testing.T) {
	ds, err := NewLoader(model.InputConfig{}, nil).ParseDataset("d.csv", []byte("case,Y\na,1.7\n"))
	require.NoError(t, err)
	assert.Equal(t, 1.7, ds.Cases[0].Values["Y"])
}

func TestParseDataset_JSON(t *testing.T) {
	data := []byte(`{"columns":["X","Y"],"cases":[{"label":"a","values":{"X":0.3,"Y":0.7}}]}`)
	ds, err := NewLoader(model.InputConfig{}, nil).ParseDataset("d.json", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, ds.Columns)
	assert.Equal(t, 0.7, ds.Cases[0].Values["Y"])
}

func TestParseDataset_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"CASE", "X", "Y"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"a", 0.25, 0.75}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"b", 1, 0}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := NewLoader(model.InputConfig{}, nil).ParseDataset("book.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, ds.Columns)
	require.Len(t, ds.Cases, 2)
	assert.Equal(t, map[string]float64{"X": 0.25, "Y": 0.75}, ds.Cases[0].Values)
	assert.Equal(t, map[string]float64{"X": 1, "Y": 0}, ds.Cases[1].Values)
}

func TestParseDataset_XLSXMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = NewLoader(model.InputConfig{Sheet: "Calibrated"}, nil).ParseDataset("book.xlsx", buf.Bytes())
	assert.Error(t, err)
}

func TestLoadTruthTable_JSONAndYAMLAgree(t *testing.T) {
	l := NewLoader(model.InputConfig{}, nil)

	fromJSON, err := l.LoadTruthTable(testdata("lipset_tt.json"))
	require.NoError(t, err)
	fromYAML, err := l.LoadTruthTable(testdata("lipset_tt.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "SURV", fromJSON.Outcome)
	require.Len(t, fromJSON.Rows, 7)
	assert.Equal(t, []string{"B", "Q"}, fromJSON.Rows[0].Cases)
	assert.Equal(t, model.ClassConsistent, fromJSON.Rows[0].Outcome)
	assert.Equal(t, model.ClassInconsistent, fromJSON.Rows[5].Outcome)
	assert.Equal(t, model.ClassUndetermined, fromJSON.Rows[6].Outcome)
	assert.Empty(t, fromJSON.Rows[6].Cases)
	require.NotNil(t, fromJSON.Rows[0].Incl)
	assert.InDelta(t, 0.904, *fromJSON.Rows[0].Incl, 1e-9)

	fromJSON.Source, fromYAML.Source = "", ""
	assert.Equal(t, fromJSON, fromYAML)
}

func TestParseTruthTable_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		data   string
		want   error
	}{
		{"comma joined cases", "t.json", `{"outcome":"Y","rows":[{"id":"1","outcome":1,"cases":"a,b"}]}`, ErrMalformed},
		{"missing outcome", "t.json", `{"rows":[]}`, ErrMalformed},
		{"bad outcome code", "t.json", `{"outcome":"Y","rows":[{"id":"1","outcome":2,"cases":[]}]}`, ErrMalformed},
		{"non binary condition", "t.json", `{"outcome":"Y","rows":[{"id":"1","conditions":{"X":0.5},"outcome":1,"cases":[]}]}`, ErrMalformed},
		{"duplicate id", "t.json", `{"outcome":"Y","rows":[{"id":"1","outcome":1,"cases":[]},{"id":"1","outcome":0,"cases":[]}]}`, ErrMalformed},
		{"duplicate configuration", "t.json", `{"outcome":"Y","conditions":["X"],"rows":[{"id":"1","conditions":{"X":1},"outcome":1,"cases":[]},{"id":"2","conditions":{"X":1},"outcome":0,"cases":[]}]}`, ErrMalformed},
		{"row misses condition", "t.json", `{"outcome":"Y","conditions":["X","Z"],"rows":[{"id":"1","conditions":{"X":1},"outcome":1,"cases":[]}]}`, ErrMalformed},
		{"invalid json", "t.json", `{"outcome":`, ErrMalformed},
		{"invalid yaml", "t.yaml", "outcome: [", ErrMalformed},
		{"unknown extension", "t.csv", "", ErrUnsupportedFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader(model.InputConfig{}, nil).ParseTruthTable(tc.source, []byte(tc.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseTruthTable_StringOutcomeCodes(t *testing.T) {
	data := []byte(`{"outcome":"Y","rows":[{"id":"1","outcome":"1","cases":["a"]},{"id":"2","outcome":"C","cases":["b"]}]}`)
	tt, err := NewLoader(model.InputConfig{}, nil).ParseTruthTable("t.json", data)
	require.NoError(t, err)
	assert.Equal(t, model.ClassConsistent, tt.Rows[0].Outcome)
	assert.Equal(t, model.ClassUndetermined, tt.Rows[1].Outcome)
}

func TestParseTruthTable_NumericRowIDs(t *testing.T) {
	data := []byte(`outcome: SURV
rows:
  - id: 32
    outcome: 1
    cases: [B, Q]
  - id: "9"
    outcome: 0
    cases: [C]
`)
	tt, err := NewLoader(model.InputConfig{}, nil).ParseTruthTable("t.yaml", data)
	require.NoError(t, err)
	require.Len(t, tt.Rows, 2)
	assert.Equal(t, "32", tt.Rows[0].ID)
	assert.Equal(t, "9", tt.Rows[1].ID)

	_, err = NewLoader(model.InputConfig{}, nil).ParseTruthTable("t.json",
		[]byte(`{"outcome":"Y","rows":[{"id":7,"outcome":1,"cases":[]},{"id":"7","outcome":0,"cases":[]}]}`))
	assert.ErrorIs(t, err, ErrMalformed, "numeric and string ids normalize to the same row id")
}

func TestParseTruthTable_DashOutcome(t *testing.T) {
	data := []byte(`{"outcome":"Y","rows":[{"id":"5","outcome":"-","cases":["a"]}]}`)
	tt, err := NewLoader(model.InputConfig{}, nil).ParseTruthTable("t.json", data)
	require.NoError(t, err)
	assert.Equal(t, model.ClassUndetermined, tt.Rows[0].Outcome)

	tt, err = NewLoader(model.InputConfig{}, nil).ParseTruthTable("t.yaml", []byte("outcome: Y\nrows:\n  - {id: 5, outcome: '-', cases: [a]}\n"))
	require.NoError(t, err)
	assert.Equal(t, model.ClassUndetermined, tt.Rows[0].Outcome)
}

func TestParseDataset_JSONMissingValue(t *testing.T) {
	data := []byte(`{"columns":["X","Y"],"cases":[{"label":"a","values":{"X":0.2,"Y":0.9}},{"label":"b","values":{"Y":0.1}}]}`)
	_, err := NewLoader(model.InputConfig{}, nil).ParseDataset("d.json", data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), `"X"`)
}
