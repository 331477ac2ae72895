package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leadsweep/leadsweep/internal/browser"
	"github.com/leadsweep/leadsweep/internal/collector"
	"github.com/leadsweep/leadsweep/internal/engine"
	"github.com/leadsweep/leadsweep/internal/output"
	"github.com/leadsweep/leadsweep/internal/session"
	"github.com/leadsweep/leadsweep/internal/store"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one lead collection against the CRM",
	Long: `Collect logs into the CRM, walks the lead board for the requested
status section down to the cutoff date, optionally enriches each lead
through the contact popover and property modal, and writes the result.

Credentials come from LEADSWEEP_CRM_EMAIL and LEADSWEEP_CRM_PASSWORD (or
the config file).`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	flags := collectCmd.Flags()

	flags.String("status", "all", "target status section (all, pendiente_contactar, en_tratativa, visita_agendada, reservado, no_vigente)")
	flags.String("cutoff", "", "oldest acceptable lead date, YYYY-MM-DD (required)")
	flags.String("start", "", "newest acceptable lead date, YYYY-MM-DD")
	flags.Int("max-leads", 0, "stop after this many leads (0 = unlimited)")
	flags.Bool("details", false, "enrich each lead with contact and property detail")

	flags.String("login-url", "", "CRM login URL")
	flags.String("board-url", "", "CRM lead board URL")
	flags.Bool("headless", true, "run the browser headless")
	flags.Bool("preflight", true, "statically probe the login page before launching the browser flow")

	flags.Bool("resolver", false, "enable the LLM-backed selector resolver and semantic fallback")
	flags.StringP("provider", "p", "", "resolver provider: anthropic, openai, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "resolver model name (provider-specific)")

	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.String("db", "", "also persist the run to this sqlite database")

	flags.Int("max-scrolls", 60, "hard ceiling on scroll attempts")
	flags.Duration("settle", 1200*time.Millisecond, "settle delay after each scroll")
}

func runCollect(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	cutoffStr, _ := flags.GetString("cutoff")
	if cutoffStr == "" {
		logError("--cutoff is required")
		return fmt.Errorf("missing cutoff")
	}
	cutoff, err := time.ParseInLocation("2006-01-02", cutoffStr, time.Local)
	if err != nil {
		logError("bad --cutoff: %v", err)
		return err
	}

	statusStr, _ := flags.GetString("status")
	status := collector.Status(statusStr)
	if !status.Valid() {
		logError("unknown status %q", statusStr)
		return fmt.Errorf("unknown status %q", statusStr)
	}

	req := collector.Request{
		TargetStatus: status,
		CutoffDate:   cutoff,
	}
	if startStr, _ := flags.GetString("start"); startStr != "" {
		start, err := time.ParseInLocation("2006-01-02", startStr, time.Local)
		if err != nil {
			logError("bad --start: %v", err)
			return err
		}
		req.StartDate = start
	}
	req.MaxLeads, _ = flags.GetInt("max-leads")
	req.ExtractDetails, _ = flags.GetBool("details")

	cfg, err := engineConfig(cmd)
	if err != nil {
		logError("%v", err)
		return err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		logError("engine startup failed: %v", err)
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bar *progressbar.ProgressBar
	if !viper.GetBool("quiet") {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("collecting"),
			progressbar.OptionSpinnerType(14),
		)
	}

	result, runErr := eng.Run(ctx, req, func(p collector.Progress) {
		if bar != nil {
			bar.Describe(fmt.Sprintf("pass %d · %d leads · %s", p.Passes, p.Leads, p.State))
			_ = bar.Add(1)
		}
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	// Partial accumulation is still written out below even when the run
	// failed late.
	if runErr != nil {
		if errors.Is(runErr, collector.ErrSessionInvalidated) {
			logError("session closed: the credential was used elsewhere, please retry")
		} else {
			logError("collection failed: %v", runErr)
		}
	}

	if dbPath, _ := flags.GetString("db"); dbPath != "" && result.TotalLeads > 0 {
		st, err := store.Open(dbPath)
		if err != nil {
			logError("run db: %v", err)
		} else {
			defer st.Close()
			if err := st.SaveRun(ctx, fmt.Sprintf("cli-%d", time.Now().Unix()), req, result); err != nil {
				logError("run persistence failed: %v", err)
			}
		}
	}

	if result.TotalLeads > 0 || runErr == nil {
		if err := writeResult(cmd, result); err != nil {
			logError("write output: %v", err)
			return err
		}
	}
	return runErr
}

func writeResult(cmd *cobra.Command, result collector.Result) error {
	formatStr, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return output.WriteResult(w, output.Format(formatStr), result)
}

// engineConfig assembles the engine configuration from flags, config file
// and environment.
func engineConfig(cmd *cobra.Command) (engine.Config, error) {
	flags := cmd.Flags()

	// Flags beat config file and environment.
	loginURL := viper.GetString("login_url")
	if v, _ := flags.GetString("login-url"); v != "" {
		loginURL = v
	}
	boardURL := viper.GetString("board_url")
	if v, _ := flags.GetString("board-url"); v != "" {
		boardURL = v
	}
	if loginURL == "" {
		return engine.Config{}, fmt.Errorf("CRM login URL not configured (--login-url or LEADSWEEP_LOGIN_URL)")
	}

	email := viper.GetString("crm_email")
	password := viper.GetString("crm_password")
	if email == "" || password == "" {
		return engine.Config{}, fmt.Errorf("CRM credentials not configured (LEADSWEEP_CRM_EMAIL / LEADSWEEP_CRM_PASSWORD)")
	}

	headless, _ := flags.GetBool("headless")
	preflight, _ := flags.GetBool("preflight")

	bcfg := browser.DefaultConfig()
	bcfg.Headless = headless

	ccfg := collector.DefaultConfig()
	ccfg.MaxScrollAttempts, _ = flags.GetInt("max-scrolls")
	if settle, err := flags.GetDuration("settle"); err == nil && settle > 0 {
		ccfg.SettleDelay = settle
	}

	resolverEnabled, _ := flags.GetBool("resolver")
	provider, _ := flags.GetString("provider")
	model, _ := flags.GetString("model")

	return engine.Config{
		Browser: bcfg,
		Session: session.Config{
			LoginURL:  loginURL,
			BoardURL:  boardURL,
			Email:     email,
			Password:  password,
			UserAgent: bcfg.UserAgent,
		},
		Collector: ccfg,
		Resolver: engine.ResolverConfig{
			Enabled:  resolverEnabled,
			Provider: provider,
			Model:    model,
			APIKey:   viper.GetString("resolver_api_key"),
		},
		Preflight: preflight,
	}, nil
}
