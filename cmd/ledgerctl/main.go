package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"shopledger/internal/cli"
	applog "shopledger/internal/log"
)

// CLI is the ledgerctl command tree.
type CLI struct {
	EnvFile string `name:"env-file" help:"Load environment from this file instead of .env." type:"path"`

	Signup signupCmd `cmd:"" help:"Create an account and sign in."`
	Login  loginCmd  `cmd:"" help:"Sign in with email and password."`
	Logout logoutCmd `cmd:"" help:"Sign out."`
	Whoami whoamiCmd `cmd:"" help:"Show the signed-in user."`

	Add     addCmd     `cmd:"" help:"Record an income or an expense."`
	List    listCmd    `cmd:"" help:"List the records of a month, newest first."`
	Summary summaryCmd `cmd:"" help:"Show income, expense and profit of a month and of today."`
	Daily   dailyCmd   `cmd:"" help:"Show the daily income and expense trend of a month."`
	Delete  deleteCmd  `cmd:"" help:"Delete a record by id."`

	Export exportCmd `cmd:"" help:"Export the whole ledger as a code or a backup file."`
	Import importCmd `cmd:"" help:"Add records from a code or a backup file."`
	Advise adviseCmd `cmd:"" help:"Ask the AI advisor about recent records."`
	Backup backupCmd `cmd:"" help:"Write a backup of the ledger to the configured destination."`
}

func main() {
	var c CLI
	kctx := kong.Parse(&c,
		kong.Name("ledgerctl"),
		kong.Description("Bookkeeping for a small shop."),
		kong.UsageOnError())

	if c.EnvFile != "" {
		cli.LoadEnvFile(c.EnvFile)
	} else {
		cli.LoadEnvFile()
	}
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, withLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
	err = kctx.Run(a)
	if cerr := a.Close(); cerr != nil {
		logger.Warn("Failed to release resources", applog.FieldError, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}
