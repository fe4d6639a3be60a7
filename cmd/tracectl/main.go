// tracectl — операторские команды: приход, варки, изделия, прослеживаемость, отзыв, сверка.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/Spok95/batch-trace/internal/app"
	"github.com/Spok95/batch-trace/internal/config"
	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/domain/finished"
	"github.com/Spok95/batch-trace/internal/domain/inventory"
	"github.com/Spok95/batch-trace/internal/domain/lineage"
	"github.com/Spok95/batch-trace/internal/domain/production"
	"github.com/Spok95/batch-trace/internal/domain/qty"
	"github.com/Spok95/batch-trace/internal/infra/logger"
	"github.com/Spok95/batch-trace/internal/report"
)

const usage = `usage: tracectl [-config path] <command> [args]

commands:
  receive -material m -lot-code c -qty q -unit u
                                    receive one lot
  import-lots <file.xlsx>           receive lots from a spreadsheet (all or nothing)
  start-run -date d [-vat v] [-notes n] [lot-id:qty[:unit] ...]
                                    record a production run, drawing from lots
  record-unit -run id -weight w -serial s
                                    record a finished unit of a run
  set-status <unit-id> <status>     Aging, Released, Held or Destroyed
  receipt-template <out.xlsx>       write an empty receipt spreadsheet
  trace [-xlsx out] <serial>        unit -> run -> raw lots
  backtrace [-xlsx out] <lot-id>    lot -> every unit made from it
  recall [-hold] [-xlsx out] <lot-id>
  audit                             check lot balances once
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tracectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	cfgPath := fs.String("config", "config/example.yaml", "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	log := logger.NewTo(stderr, cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.Close()

	if err := dispatch(ctx, a, fs.Arg(0), fs.Args()[1:], stdout); err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		if errs.IsBusiness(err) {
			return 3
		}
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, a *app.App, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "receive":
		return receive(ctx, a, args, out)
	case "start-run":
		return startRun(ctx, a, args, out)
	case "record-unit":
		return recordUnit(ctx, a, args, out)
	case "set-status":
		return setStatus(ctx, a, args, out)
	case "import-lots":
		return importLots(ctx, a, args, out)
	case "receipt-template":
		if len(args) != 1 {
			return errors.New("receipt-template: output file required")
		}
		return writeFile(args[0], report.WriteReceiptTemplate)
	case "trace":
		return trace(ctx, a, args, out)
	case "backtrace":
		return backtrace(ctx, a, args, out)
	case "recall":
		return recallLot(ctx, a, args, out)
	case "audit":
		return auditOnce(ctx, a, out)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func receive(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("receive", flag.ContinueOnError)
	material := fs.String("material", "", "material name")
	lotCode := fs.String("lot-code", "", "supplier lot code")
	qtyStr := fs.String("qty", "", "received quantity")
	unit := fs.String("unit", "", "unit of measure")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q, err := qty.Parse("quantity", *qtyStr)
	if err != nil {
		return err
	}
	id, err := a.Lots.Receive(ctx, inventory.Receipt{Material: *material, LotCode: *lotCode, Quantity: q, Unit: *unit})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "lot %d received: %s %s %s\n", id, *material, q, *unit)
	return nil
}

func startRun(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("start-run", flag.ContinueOnError)
	date := fs.String("date", "", "run date")
	vat := fs.String("vat", "", "vat number")
	notes := fs.String("notes", "", "free-form notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := production.RunRequest{RunDate: *date, VatNumber: *vat, Notes: *notes}
	for i, arg := range fs.Args() {
		ing, err := ingredientArg(i, arg)
		if err != nil {
			return err
		}
		req.Ingredients = append(req.Ingredients, ing)
	}

	id, err := a.Runs.StartRun(ctx, req)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "run %d started, %d ingredient lines\n", id, len(req.Ingredients))
	return nil
}

// ingredientArg разбирает "lot-id:qty" или "lot-id:qty:unit".
func ingredientArg(i int, arg string) (production.Ingredient, error) {
	field := fmt.Sprintf("ingredients[%d]", i)
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return production.Ingredient{}, errs.Validation(field, fmt.Sprintf("want lot-id:qty[:unit], got %q", arg))
	}
	lotID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return production.Ingredient{}, errs.Validation(field+".lot_id", fmt.Sprintf("bad lot id %q", parts[0]))
	}
	q, err := qty.Parse(field+".quantity", parts[1])
	if err != nil {
		return production.Ingredient{}, err
	}
	ing := production.Ingredient{LotID: lotID, Quantity: q}
	if len(parts) == 3 {
		ing.Unit = parts[2]
	}
	return ing, nil
}

func recordUnit(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("record-unit", flag.ContinueOnError)
	runID := fs.Int64("run", 0, "production run id")
	weight := fs.Float64("weight", 0, "unit weight")
	serial := fs.String("serial", "", "serial number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.Units.RecordUnit(ctx, *runID, *weight, *serial)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "unit %d recorded: %s\n", id, strings.TrimSpace(*serial))
	return nil
}

func setStatus(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("set-status: unit id and status required")
	}
	unitID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || unitID <= 0 {
		return errs.Validation("unit_id", fmt.Sprintf("bad unit id %q", args[0]))
	}
	status := finished.Status(args[1])
	if err := a.Units.SetStatus(ctx, unitID, status); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "unit %d is now %s\n", unitID, status)
	return nil
}

func importLots(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("import-lots: input file required")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	receipts, err := report.ReadReceipts(f)
	if err != nil {
		return err
	}
	ids, err := a.Lots.ReceiveBatch(ctx, receipts)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LOT_ID\tMATERIAL\tLOT_CODE\tQTY\tUNIT")
	for i, rc := range receipts {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ids[i], rc.Material, rc.LotCode, rc.Quantity, rc.Unit)
	}
	return tw.Flush()
}

func trace(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	xlsx := fs.String("xlsx", "", "write report to xlsx file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("trace: serial number required")
	}

	rep, err := a.Tracer.TraceForward(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if *xlsx != "" {
		return writeFile(*xlsx, func(w io.Writer) error { return report.WriteTrace(w, rep) })
	}

	_, _ = fmt.Fprintf(out, "unit %s (id %d) %s, %g\n", rep.Serial, rep.UnitID, rep.Status, rep.Weight)
	_, _ = fmt.Fprintf(out, "run %d, %s, vat %s\n", rep.RunID, rep.RunDate, rep.VatNumber)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LOT_ID\tMATERIAL\tLOT_CODE\tQTY\tUNIT")
	for _, ing := range rep.Ingredients {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ing.LotID, ing.Material, ing.LotCode, ing.Quantity, ing.Unit)
	}
	return tw.Flush()
}

func backtrace(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("backtrace", flag.ContinueOnError)
	xlsx := fs.String("xlsx", "", "write report to xlsx file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	lotID, err := lotArg(fs)
	if err != nil {
		return err
	}
	units, err := a.Tracer.TraceBackward(ctx, lotID)
	if err != nil {
		return err
	}
	if *xlsx != "" {
		return writeFile(*xlsx, func(w io.Writer) error { return report.WriteRecall(w, lotID, units) })
	}
	return printUnits(out, units)
}

func recallLot(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recall", flag.ContinueOnError)
	hold := fs.Bool("hold", false, "move affected Aging units to Held")
	xlsx := fs.String("xlsx", "", "write affected units to xlsx file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	lotID, err := lotArg(fs)
	if err != nil {
		return err
	}

	var units []lineage.UnitSummary
	if *hold {
		res, err := a.Recall.Hold(ctx, lotID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "held %d, skipped %d\n", len(res.Held), len(res.Skipped))
		units = append(units, res.Held...)
		units = append(units, res.Skipped...)
	} else {
		units, err = a.Recall.Affected(ctx, lotID)
		if err != nil {
			return err
		}
	}
	if *xlsx != "" {
		return writeFile(*xlsx, func(w io.Writer) error { return report.WriteRecall(w, lotID, units) })
	}
	return printUnits(out, units)
}

func auditOnce(ctx context.Context, a *app.App, out io.Writer) error {
	bad, err := a.Auditor.Check(ctx)
	if err != nil {
		return err
	}
	if len(bad) == 0 {
		_, _ = fmt.Fprintln(out, "all lot balances consistent")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LOT_ID\tON_HAND\tEXPECTED\tJOURNAL")
	for _, b := range bad {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", b.LotID, b.OnHand, b.Expected, b.Journal)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("%d lots out of balance", len(bad))
}

func printUnits(out io.Writer, units []lineage.UnitSummary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN_ID\tRUN_DATE\tUNIT_ID\tSERIAL\tSTATUS\tWEIGHT")
	for _, u := range units {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%g\n", u.RunID, u.RunDate, u.UnitID, u.Serial, u.Status, u.Weight)
	}
	return tw.Flush()
}

func lotArg(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%s: lot id required", fs.Name())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("lot_id", fmt.Sprintf("bad lot id %q", fs.Arg(0)))
	}
	return id, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
