// README: vetrictl command tree; ops tooling that talks to the stores directly.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/modules/zone"
)

// Env is what the commands operate on.
type Env struct {
	Delivery *delivery.Service
	Zones    *zone.Resolver
	Orders   *order.Service
	Now      func() time.Time
}

// Opener builds an Env; the returned func releases its connections.
type Opener func(ctx context.Context, configPath string) (*Env, func(), error)

type app struct {
	open       Opener
	configPath string
	operator   string
}

// NewRootCmd wires every subcommand against open.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}
	root := &cobra.Command{
		Use:   "vetrictl",
		Short: "vetrimart ops tool",
		Long: `vetrictl checks delivery feasibility and moves orders through the
warehouse and rider stages without going through the HTTP API.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./config.yaml when present)")
	root.PersistentFlags().StringVar(&a.operator, "operator", "vetrictl", "operator id recorded on order events")

	root.AddCommand(a.feasibilityCmd(), a.nearestCmd())
	for _, c := range a.orderCmds() {
		root.AddCommand(c)
	}
	return root
}

func (a *app) withEnv(cmd *cobra.Command, fn func(ctx context.Context, env *Env, out io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, closeFn, err := a.open(ctx, a.configPath)
	if err != nil {
		return fmt.Errorf("failed to open environment: %w", err)
	}
	defer closeFn()
	if env.Now == nil {
		env.Now = time.Now
	}
	return fn(ctx, env, cmd.OutOrStdout())
}
