package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vetrimart/internal/modules/order"
	"vetrimart/internal/types"
)

type orderStep struct {
	use, short string
	run        func(s *order.Service) func(ctx context.Context, id types.ID, actor order.Actor, now time.Time) (*order.Order, error)
}

var orderSteps = []orderStep{
	{"dispatch", "Hand a confirmed order to the warehouse", func(s *order.Service) func(context.Context, types.ID, order.Actor, time.Time) (*order.Order, error) {
		return s.Dispatch
	}},
	{"start", "Send the rider out", func(s *order.Service) func(context.Context, types.ID, order.Actor, time.Time) (*order.Order, error) {
		return s.StartDelivery
	}},
	{"delay", "Mark an order delayed", func(s *order.Service) func(context.Context, types.ID, order.Actor, time.Time) (*order.Order, error) {
		return s.MarkDelayed
	}},
	{"fail", "Mark a delivery attempt failed", func(s *order.Service) func(context.Context, types.ID, order.Actor, time.Time) (*order.Order, error) {
		return s.MarkFailed
	}},
	{"deliver", "Confirm an order as delivered", func(s *order.Service) func(context.Context, types.ID, order.Actor, time.Time) (*order.Order, error) {
		return s.ConfirmDelivery
	}},
}

func (a *app) orderCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(orderSteps))
	for _, step := range orderSteps {
		step := step
		cmds = append(cmds, &cobra.Command{
			Use:   step.use + " ORDER_ID",
			Short: step.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withEnv(cmd, func(ctx context.Context, env *Env, out io.Writer) error {
					operator := types.ID(a.operator)
					actor := order.Actor{Type: order.ActorOps, ID: &operator}
					o, err := step.run(env.Orders)(ctx, types.ID(args[0]), actor, env.Now())
					if err != nil {
						return fmt.Errorf("%s %s: %w", step.use, args[0], err)
					}
					fmt.Fprintf(out, "order %s is now %s\n", o.ID, o.Status)
					return nil
				})
			},
		})
	}
	return cmds
}
