package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/batch-trace/internal/app"
	"github.com/Spok95/batch-trace/internal/config"
	"github.com/Spok95/batch-trace/internal/domain/production"
)

func setup(t *testing.T) (cfgPath string, dir string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	body := "storage:\n  driver: sqlite\nsqlite:\n  path: " + filepath.Join(dir, "trace.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, dir
}

func receiptsFile(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"material", "lot_code", "quantity", "unit"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Milk", "LOT-001", 100, "kg"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Salt", "S-1", 5, "kg"}))
	path := filepath.Join(dir, "lots.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportTraceRecall(t *testing.T) {
	cfgPath, dir := setup(t)
	var out, errOut bytes.Buffer

	code := run([]string{"-config", cfgPath, "import-lots", receiptsFile(t, dir)}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "LOT-001")
	assert.Contains(t, out.String(), "S-1")

	// варку и изделие заводим через библиотеку на той же базе
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	a, err := app.Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	lots, err := a.Lots.ListLots(context.Background())
	require.NoError(t, err)
	require.Len(t, lots, 2)
	var milk int64
	for _, l := range lots {
		if l.LotCode == "LOT-001" {
			milk = l.ID
		}
	}
	runID, err := a.Runs.StartRun(context.Background(), production.RunRequest{RunDate: "2024-01-01", Ingredients: []production.Ingredient{{LotID: milk, Quantity: decimal.NewFromInt(30)}}})
	require.NoError(t, err)
	_, err = a.Units.RecordUnit(context.Background(), runID, 12, "U-1")
	require.NoError(t, err)
	a.Close()

	out.Reset()
	require.Equal(t, 0, run([]string{"-config", cfgPath, "trace", "U-1"}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "unit U-1")
	assert.Contains(t, out.String(), "LOT-001")

	xlsx := filepath.Join(dir, "trace.xlsx")
	require.Equal(t, 0, run([]string{"-config", cfgPath, "trace", "-xlsx", xlsx, "U-1"}, &out, &errOut))
	assert.FileExists(t, xlsx)

	out.Reset()
	require.Equal(t, 0, run([]string{"-config", cfgPath, "recall", "-hold", strconv.FormatInt(milk, 10)}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "held 1, skipped 0")
	assert.Contains(t, out.String(), "Held")

	out.Reset()
	require.Equal(t, 0, run([]string{"-config", cfgPath, "audit"}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "consistent")
}

func TestOperatorFlow(t *testing.T) {
	cfgPath, _ := setup(t)
	var out, errOut bytes.Buffer
	cli := func(args ...string) int {
		out.Reset()
		errOut.Reset()
		return run(append([]string{"-config", cfgPath}, args...), &out, &errOut)
	}

	require.Equal(t, 0, cli("receive", "-material", "Rennet", "-lot-code", "R-1", "-qty", "0,3", "-unit", "l"), errOut.String())
	var lotID int64
	_, err := fmt.Sscanf(out.String(), "lot %d received", &lotID)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Rennet 0.3 l")

	lot := strconv.FormatInt(lotID, 10)
	require.Equal(t, 0, cli("start-run", "-date", "2024-01-01", "-vat", "VAT-2", lot+":0.1", lot+":0.2:l"), errOut.String())
	var runID int64
	_, err = fmt.Sscanf(out.String(), "run %d started", &runID)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "2 ingredient lines")

	// лот выбран до нуля, следующая варка упирается в остаток
	assert.Equal(t, 3, cli("start-run", "-date", "2024-01-02", lot+":0.0001"))
	assert.Contains(t, errOut.String(), "insufficient stock")

	require.Equal(t, 0, cli("record-unit", "-run", strconv.FormatInt(runID, 10), "-weight", "11.5", "-serial", "U-7"), errOut.String())
	var unitID int64
	_, err = fmt.Sscanf(out.String(), "unit %d recorded", &unitID)
	require.NoError(t, err)

	require.Equal(t, 0, cli("set-status", strconv.FormatInt(unitID, 10), "Held"), errOut.String())
	assert.Contains(t, out.String(), "is now Held")
	assert.Equal(t, 3, cli("set-status", strconv.FormatInt(unitID, 10), "Aging"), "Held -> Aging is not allowed")

	require.Equal(t, 0, cli("trace", "U-7"), errOut.String())
	assert.Contains(t, out.String(), "Held")
	assert.Contains(t, out.String(), "R-1")
	assert.Contains(t, out.String(), "0.1")
	assert.Contains(t, out.String(), "0.2")

	require.Equal(t, 0, cli("audit"), errOut.String())
	assert.Contains(t, out.String(), "consistent")
}

func TestOperatorCommandsReject(t *testing.T) {
	cfgPath, _ := setup(t)
	var out, errOut bytes.Buffer
	cli := func(args ...string) int {
		return run(append([]string{"-config", cfgPath}, args...), &out, &errOut)
	}

	assert.Equal(t, 3, cli("receive", "-material", "Milk", "-lot-code", "L", "-qty", "lots", "-unit", "kg"))
	assert.Equal(t, 3, cli("receive", "-material", "Milk", "-lot-code", "L", "-qty", "0.00001", "-unit", "kg"))
	assert.Equal(t, 3, cli("start-run", "-date", "2024-01-01", "7"))
	assert.Equal(t, 3, cli("start-run", "-date", "2024-01-01", "x:1"))
	assert.Equal(t, 3, cli("start-run", "-date", "2024-01-01", "404:1"), "unknown lot")
	assert.Equal(t, 3, cli("record-unit", "-run", "404", "-weight", "1", "-serial", "U-1"))
	assert.Equal(t, 3, cli("set-status", "abc", "Held"))
	assert.Equal(t, 3, cli("set-status", "1", "Eaten"))
	assert.Equal(t, 1, cli("set-status", "1"))
}

func TestExitCodes(t *testing.T) {
	cfgPath, _ := setup(t)
	var out, errOut bytes.Buffer

	assert.Equal(t, 2, run(nil, &out, &errOut))
	assert.Equal(t, 3, run([]string{"-config", cfgPath, "trace", "U-404"}, &out, &errOut))
	assert.Equal(t, 3, run([]string{"-config", cfgPath, "backtrace", "abc"}, &out, &errOut))
	assert.Equal(t, 1, run([]string{"-config", cfgPath, "bogus"}, &out, &errOut))
}
