package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadIdentifiers_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.csv")
	content := "\ufeffGene, UniprotID \nDRD4,P21917\nBLANK,\nDRD2, P14416 \nDRD4,P21917\nSHORT\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ids, err := ReadIdentifiers(path, "UniprotID")
	require.NoError(t, err)
	assert.Equal(t, []string{"P21917", "P14416", "P21917"}, ids)
}

func TestReadIdentifiers_Excel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uniprotids.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"UniprotID", "Note"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"P21917", "DRD4"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"", "blank"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"P14416"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ids, err := ReadIdentifiers(path, "UniprotID")
	require.NoError(t, err)
	assert.Equal(t, []string{"P21917", "P14416"}, ids)
}

func TestReadIdentifiers_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.csv")
	require.NoError(t, os.WriteFile(path, []byte("Accession\nP21917\n"), 0644))

	_, err := ReadIdentifiers(path, "UniprotID")
	assert.ErrorIs(t, err, ErrIdentifierColumn)
}

func TestReadIdentifiers_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadIdentifiers(filepath.Join(dir, "ids.txt"), "UniprotID")
	assert.Error(t, err)

	_, err = ReadIdentifiers(filepath.Join(dir, "missing.csv"), "UniprotID")
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = ReadIdentifiers(empty, "UniprotID")
	assert.ErrorIs(t, err, ErrIdentifierColumn)
}
