package ingestion

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "monthly_salary", NormalizeHeader("  Monthly Salary "))
	assert.Equal(t, "customer_id", NormalizeHeader("\ufeffCustomer ID"))
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customer_data.csv")
	content := "Customer ID,First Name,Monthly Salary\n1,Asha,50000\n\n2, Ravi ,\"1,20,000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "first_name", "monthly_salary"}, table.Headers)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, 2, table.Rows[0].Number)
	assert.Equal(t, 3, table.Rows[1].Number)

	name, ok := table.Rows[1].Get("first_name")
	assert.True(t, ok)
	assert.Equal(t, "Ravi", name)

	salary, _ := table.Rows[1].Get("monthly_salary")
	assert.Equal(t, "1,20,000", salary)

	_, ok = table.Rows[0].Get("approved_limit")
	assert.False(t, ok)
	assert.True(t, table.HasColumn("approved_limit", "monthly_salary"))
}

func TestReadXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loan_data.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Customer ID", "Loan ID", "Monthly payment", "Date of Approval"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, 9001, 4707.35, "2024-01-15"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "loan_id", "monthly_payment", "date_of_approval"}, table.Headers)
	require.Len(t, table.Rows, 1)

	emi, ok := table.Rows[0].Get("monthly_repayment", "monthly_payment", "emi")
	assert.True(t, ok)
	assert.Equal(t, "4707.35", emi)

	id, _ := table.Rows[0].Get("loan_id")
	assert.Equal(t, "9001", id)
}

func TestReadFileUnsupported(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "data.json"))
	assert.Error(t, err)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()

	_, err := Locate(dir, "customer_data")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "customer_data.csv"), []byte("customer_id\n"), 0o600))
	path, err := Locate(dir, "customer_data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "customer_data.csv"), path)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-01-01", "2024-01-01 00:00:00", "01/01/2024", "45292"} {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDate(in)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s", got)
		})
	}

	_, err := ParseDate("")
	assert.Error(t, err)
	_, err = ParseDate("not a date")
	assert.Error(t, err)
}
