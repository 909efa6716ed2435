package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/smartcharge/app"
	"github.com/kilianp07/smartcharge/infra/logger"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute and store a charge plan once",
	RunE:  cycle(app.JobPlan),
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Start or stop the charger according to the stored plan",
	RunE:  cycle(app.JobExecute),
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Run one load balancing pass",
	RunE:  cycle(app.JobBalance),
}

func init() {
	rootCmd.AddCommand(planCmd, executeCmd, balanceCmd)
}

func cycle(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				logger.New("main").Errorf("service close: %v", err)
			}
		}()
		return svc.RunCycle(ctx, name)
	}
}
