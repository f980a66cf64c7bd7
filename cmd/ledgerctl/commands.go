package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"shopledger/internal/backup"
	"shopledger/internal/core"
	applog "shopledger/internal/log"
	"shopledger/internal/session"
	"shopledger/internal/worker"
)

type signupCmd struct {
	Email    string `required:"" help:"Email address."`
	Password string `required:"" help:"Password, at least 6 characters."`
	Name     string `help:"Display name. Defaults to the part of the email before @."`
}

func (c *signupCmd) Run(a *app) error {
	id, err := a.auth.SignUp(context.Background(), c.Email, c.Password, c.Name)
	if err != nil {
		return err
	}
	a.printf("Welcome, %s.\n", id.Name)
	return nil
}

type loginCmd struct {
	Email    string `required:"" help:"Email address."`
	Password string `required:"" help:"Password."`
}

func (c *loginCmd) Run(a *app) error {
	id, err := a.auth.SignIn(context.Background(), c.Email, c.Password)
	if err != nil {
		return err
	}
	a.printf("Signed in as %s <%s>.\n", id.Name, id.Email)
	return nil
}

type logoutCmd struct{}

func (c *logoutCmd) Run(a *app) error {
	if err := a.auth.SignOut(context.Background()); err != nil {
		return err
	}
	a.printf("Signed out.\n")
	return nil
}

type whoamiCmd struct{}

func (c *whoamiCmd) Run(a *app) error {
	id, err := a.signedIn(context.Background())
	if err != nil {
		return err
	}
	a.printf("%s <%s> (%s)\n", id.Name, id.Email, id.ID)
	return nil
}

type addCmd struct {
	Type        string `arg:"" enum:"income,expense,in,out" help:"income or expense."`
	Amount      string `arg:"" help:"Amount such as 12.50 or 12,50."`
	Description string `arg:"" help:"What the money was for."`
	Category    string `default:"other" help:"Category, e.g. sales, rent, payroll, utilities, inventory, other."`
	Date        string `help:"Date as YYYY-MM-DD. Defaults to today."`
}

func (c *addCmd) Run(a *app) error {
	ctx := context.Background()
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	typ, err := core.ParseTxType(c.Type)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	date := c.Date
	if date == "" {
		date = core.Today(a.now())
	}
	tx := core.Transaction{
		Description: strings.TrimSpace(c.Description),
		Amount:      amount,
		Type:        typ,
		Category:    c.Category,
		Date:        date,
	}
	if err := a.gate.Add(ctx, tx); err != nil {
		return err
	}
	a.printf("Added %s %s on %s.\n", strings.ToLower(string(typ)), amount, date)
	return nil
}

// periodFlag selects the month a read command works on.
type periodFlag struct {
	Period string `short:"p" help:"Month as YYYY-MM. Defaults to the current month."`
}

func (p periodFlag) view(a *app) (session.View, error) {
	if _, err := a.signedIn(context.Background()); err != nil {
		return session.View{}, err
	}
	if p.Period != "" {
		if err := a.gate.SetPeriod(p.Period); err != nil {
			return session.View{}, err
		}
	}
	return a.gate.View()
}

type listCmd struct {
	Month periodFlag `embed:""`
	All   bool       `help:"List every record instead of one month."`
}

func (c *listCmd) Run(a *app) error {
	var txs []core.Transaction
	if c.All {
		if _, err := a.signedIn(context.Background()); err != nil {
			return err
		}
		all, err := a.gate.Transactions()
		if err != nil {
			return err
		}
		txs = all
	} else {
		v, err := c.Month.view(a)
		if err != nil {
			return err
		}
		txs = v.Transactions
	}
	if len(txs) == 0 {
		a.printf("No records.\n")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION\tID")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.Date, tx.Type, tx.Amount, tx.Category, tx.Description, tx.ID)
	}
	return w.Flush()
}

type summaryCmd struct {
	Month periodFlag `embed:""`
}

func (c *summaryCmd) Run(a *app) error {
	v, err := c.Month.view(a)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\t%s\tTODAY\t\n", v.Period)
	fmt.Fprintf(w, "Income\t%s\t%s\t\n", v.Summary.Income, v.Today.Income)
	fmt.Fprintf(w, "Expense\t%s\t%s\t\n", v.Summary.Expense, v.Today.Expense)
	fmt.Fprintf(w, "Profit\t%s\t%s\t\n", v.Summary.Profit, v.Today.Profit)
	return w.Flush()
}

type dailyCmd struct {
	Month periodFlag `embed:""`
}

func (c *dailyCmd) Run(a *app) error {
	v, err := c.Month.view(a)
	if err != nil {
		return err
	}
	if len(v.Daily) == 0 {
		a.printf("No records in %s.\n", v.Period)
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "DATE\tINCOME\tEXPENSE\t")
	for _, p := range v.Daily {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", p.Date, p.Income, p.Expense)
	}
	return w.Flush()
}

type deleteCmd struct {
	ID  string `arg:"" help:"Record id as shown by list."`
	Yes bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *deleteCmd) Run(a *app) error {
	ctx := context.Background()
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	if !c.Yes && !a.confirm("Delete record "+c.ID+"?") {
		a.printf("Nothing deleted.\n")
		return nil
	}
	if err := a.gate.Delete(ctx, c.ID); err != nil {
		return err
	}
	a.printf("Deleted.\n")
	return nil
}

type exportCmd struct {
	Code exportCodeCmd `cmd:"" help:"Print the ledger as a code to paste on another device."`
	File exportFileCmd `cmd:"" help:"Write the ledger to a backup file."`
}

type exportCodeCmd struct{}

func (c *exportCodeCmd) Run(a *app) error {
	if _, err := a.signedIn(context.Background()); err != nil {
		return err
	}
	code, err := a.gate.ExportCode()
	if err != nil {
		return err
	}
	a.printf("%s\n", code)
	return nil
}

type exportFileCmd struct {
	Dir string `default:"." type:"path" help:"Directory to write the backup file to."`
}

func (c *exportFileCmd) Run(a *app) error {
	if _, err := a.signedIn(context.Background()); err != nil {
		return err
	}
	name, data, err := a.gate.ExportFile()
	if err != nil {
		return err
	}
	target := filepath.Join(c.Dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	a.printf("Saved %s.\n", target)
	return nil
}

type importCmd struct {
	Code importCodeCmd `cmd:"" help:"Add the records of a pasted code."`
	File importFileCmd `cmd:"" help:"Add the records of a backup file."`
}

// confirmFlag is shared by both import paths; neither writes before it.
type confirmFlag struct {
	Yes bool `short:"y" help:"Import without asking for confirmation."`
}

func (f confirmFlag) commit(a *app, count int) error {
	ctx := context.Background()
	if !f.Yes && !a.confirm(fmt.Sprintf("%d records found. Import them?", count)) {
		a.gate.CancelImport()
		a.printf("Nothing imported.\n")
		return nil
	}
	n, err := a.gate.ConfirmImport(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Import committed", applog.FieldCount, n)
	a.printf("Imported %d records.\n", n)
	return nil
}

type importCodeCmd struct {
	Confirm confirmFlag `embed:""`
	Code    string      `arg:"" help:"Code produced by export code."`
}

func (c *importCodeCmd) Run(a *app) error {
	if _, err := a.signedIn(context.Background()); err != nil {
		return err
	}
	n, err := a.gate.PrepareImportCode(c.Code)
	if err != nil {
		return err
	}
	return c.Confirm.commit(a, n)
}

type importFileCmd struct {
	Confirm confirmFlag `embed:""`
	Path    string      `arg:"" type:"existingfile" help:"Backup file produced by export file."`
}

func (c *importFileCmd) Run(a *app) error {
	if _, err := a.signedIn(context.Background()); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.Path, err)
	}
	n, err := a.gate.PrepareImportFile(data)
	if err != nil {
		return err
	}
	return c.Confirm.commit(a, n)
}

type adviseCmd struct {
	Month periodFlag `embed:""`
}

func (c *adviseCmd) Run(a *app) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.AdviceTimeout)
	defer cancel()
	if _, err := c.Month.view(a); err != nil {
		return err
	}
	text, err := a.gate.Advise(ctx)
	if err != nil {
		return err
	}
	a.printf("%s\n", text)
	return nil
}

type backupCmd struct{}

func (c *backupCmd) Run(a *app) error {
	ctx := context.Background()
	id, err := a.signedIn(ctx)
	if err != nil {
		return err
	}
	sink, closeSink, err := backup.Open(ctx, a.cfg.BackupDir, a.cfg.BackupBucket, a.cfg.BackupPrefix)
	if err != nil {
		return err
	}
	defer closeSink()

	w := worker.NewBackupWorker(a.backend.Store, sink,
		worker.WithClock(a.now),
		worker.WithLogger(a.logger.WithComponent(applog.ComponentBackup)))
	name, err := w.BackupUser(ctx, id.ID)
	if err != nil {
		return err
	}
	if name == "" {
		a.printf("Nothing to back up.\n")
		return nil
	}
	a.printf("Backup written to %s.\n", name)
	return nil
}
