package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/burrownet/burrow/pkg/firewall"
	"github.com/burrownet/burrow/pkg/metrics"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve Prometheus metrics with chain traffic counters",
	Long: `Serve Burrow's Prometheus metrics over HTTP.

In addition to the operation counters, every scrape reads packet/byte
counters from the given iptables chains for bandwidth accounting:

  burrow monitor --listen :9383 --chain BURROW-web --chain BURROW-db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		table, _ := cmd.Flags().GetString("table")
		chains, _ := cmd.Flags().GetStringArray("chain")

		if len(chains) > 0 {
			collector := metrics.NewChainCollector(firewall.NewIPTables(table), chains)
			prometheus.MustRegister(collector)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())

		server := &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		fmt.Printf("Serving metrics on %s/metrics. Press Ctrl+C to stop.\n", listen)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
			return server.Close()
		case err := <-errCh:
			return err
		}
	},
}

func init() {
	monitorCmd.Flags().String("listen", ":9383", "Metrics listen address")
	monitorCmd.Flags().String("table", firewall.DefaultTable, "Netfilter table to read counters from")
	monitorCmd.Flags().StringArray("chain", nil, "Chain to export traffic counters for (repeatable)")

	rootCmd.AddCommand(monitorCmd)
}
