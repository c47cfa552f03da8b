package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/festivalops/research-cli/internal/resilience"
)

var breakerCmd = &cobra.Command{
	Use:   "breaker",
	Short: "Inspect the circuit breaker configuration",
	Long:  "Shows the breaker limits in effect. Live state is per process; query a running server's /health endpoint for it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		breaker := newTaskRunner().Breaker()
		formatBreaker(os.Stdout, breaker,
			cfg.Resilience.BreakerThreshold,
			time.Duration(cfg.Resilience.BreakerCooldownSec)*time.Second)
		return nil
	},
}

func formatBreaker(out io.Writer, b *resilience.CircuitBreaker, threshold int, cooldown time.Duration) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Failure threshold:\t%d\n", threshold)
	_, _ = fmt.Fprintf(w, "Cooldown:\t%s\n", cooldown)
	_, _ = fmt.Fprintf(w, "Open:\t%t\n", b.IsOpen())
	_, _ = fmt.Fprintf(w, "Failures:\t%d\n", b.Failures())
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(breakerCmd)
}
