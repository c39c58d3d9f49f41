package ingest

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/pipeline"
	"github.com/Mrassimo/datapilot-sub008/internal/sample"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestOpenXLSXReadsRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"amount", "label"},
		{"10", "a"},
		{"20", "b"},
	})

	src, err := OpenXLSX(path, XLSXOptions{})
	require.NoError(t, err)

	row, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "label"}, row)

	row, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "a"}, row)

	_, err = src.Next()
	require.NoError(t, err)
	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenXLSXSkipRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"report title"},
		{"amount"},
		{"10"},
	})

	src, err := OpenXLSX(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)

	row, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"amount"}, row)
}

func TestOpenXLSXUnknownSheet(t *testing.T) {
	path := writeWorkbook(t, [][]string{{"a"}})

	_, err := OpenXLSX(path, XLSXOptions{SheetName: "Nope"})
	require.Error(t, err)

	_, err = OpenXLSX(path, XLSXOptions{SheetIndex: 4})
	require.Error(t, err)
}

func TestXLSXFeedsPipeline(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"amount"},
		{"10"}, {"20"}, {"30"}, {"40"}, {"50"},
	})

	src, err := OpenXLSX(path, XLSXOptions{})
	require.NoError(t, err)

	p := pipeline.New(pipeline.Config{}, nil, 1)
	res, err := p.Run(context.Background(), src, true,
		sample.Decision{Method: sample.MethodNone, Rate: 1})
	require.NoError(t, err)

	require.Len(t, res.Profiles, 1)
	assert.Equal(t, model.TypeInteger, res.Profiles[0].Type)
	assert.InDelta(t, 30, res.Stats[0].Mean, 1e-9)
	assert.InDelta(t, 200, res.Stats[0].Variance, 1e-9)
}
