// Command ttadmin runs operator tasks against the TickerTalk database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"tickertalk/internal/config"
	"tickertalk/internal/db"
	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, "ttadmin")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&migrateCmd{}, "database")
	commander.Register(&resetLinkCmd{}, "accounts")
	commander.Register(&quoteCmd{}, "market")
	flag.Parse()

	cfg := config.Load()
	if err := utils.InitLogger(utils.LogOptions{Level: cfg.LogLevel}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// --- migrateCmd ---

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the database schema" }
func (*migrateCmd) Usage() string {
	return `ttadmin migrate

  Connects with the configured DATABASE_URL (or DB_* variables) and migrates
  every table, including the case-insensitive unique indexes on users.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db.Init()
	fmt.Println("schema is up to date")
	return subcommands.ExitSuccess
}

// --- resetLinkCmd ---

type resetLinkCmd struct {
	email string
}

func (*resetLinkCmd) Name() string     { return "reset-link" }
func (*resetLinkCmd) Synopsis() string { return "print a password reset link for a user" }
func (*resetLinkCmd) Usage() string {
	return `ttadmin reset-link -email <address>

  Issues a password reset token for the account and prints the link instead
  of emailing it. The link expires after RESET_TOKEN_TTL.
`
}
func (c *resetLinkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Email address of the account.")
}

func (c *resetLinkCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required.")
		return subcommands.ExitUsageError
	}
	cfg := config.Get()
	db.Init()

	user, err := services.NewAccountService(db.DB, cfg.ReverifyAfter).FindByEmail(c.email)
	if errors.Is(err, services.ErrUserNotFound) {
		fmt.Fprintf(os.Stderr, "No account uses %s.\n", c.email)
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	token, err := services.NewResetTokens(cfg.AppSecretKey, cfg.ResetTokenTTL).Issue(user)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s/reset_password/%s\n", cfg.SiteURL, token)
	return subcommands.ExitSuccess
}

// --- quoteCmd ---

type quoteCmd struct {
	symbol string
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "fetch the current intraday chart for a symbol" }
func (*quoteCmd) Usage() string {
	return `ttadmin quote [-symbol <ticker>]

  Fetches the same chart the dashboard broadcasts and prints the latest price.
`
}
func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol (defaults to MARKET_SYMBOL).")
}

func (c *quoteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Get()
	symbol := c.symbol
	if symbol == "" {
		symbol = cfg.MarketSymbol
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	chart, err := services.NewYahooQuoteSource(cfg.MarketBaseURL).Chart(ctx, symbol)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s %s %s (%s), %d candles\n", chart.Symbol, chart.Price.StringFixed(2), chart.Currency, chart.Change.StringFixed(2), len(chart.Candles))
	return subcommands.ExitSuccess
}
