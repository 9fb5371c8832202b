package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/slot"
	"vetrimart/internal/types"
)

func (a *app) feasibilityCmd() *cobra.Command {
	var (
		zoneID, lat, lng, slotRaw string
		mode                      string
	)
	cmd := &cobra.Command{
		Use:   "feasibility",
		Short: "Check whether a slot can be promised for a location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(cmd, func(ctx context.Context, env *Env, out io.Writer) error {
				res, err := env.Delivery.Check(ctx, delivery.CheckRequest{
					ZoneID:    zoneID,
					Latitude:  lat,
					Longitude: lng,
					Slot:      slotRaw,
					Mode:      delivery.Mode(mode),
				}, env.Now())
				if err != nil {
					return err
				}
				verdict := "feasible"
				if !res.Feasible {
					verdict = "not feasible"
				}
				fmt.Fprintf(out, "%s (%s mode)\n", verdict, res.Mode)
				fmt.Fprintf(out, "  distance: %.2f km\n", res.DistanceKm)
				fmt.Fprintf(out, "  travel:   %s\n", delivery.FormatDuration(res.EstimatedMinutes))
				fmt.Fprintf(out, "  eta:      %s %s\n", res.DayLabel, slot.Format(res.ETA))
				fmt.Fprintf(out, "  window:   %s\n", res.Window)
				fmt.Fprintf(out, "  %s\n", res.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&zoneID, "zone", "", "delivery zone id")
	cmd.Flags().StringVar(&lat, "lat", "", "destination latitude")
	cmd.Flags().StringVar(&lng, "lng", "", "destination longitude")
	cmd.Flags().StringVar(&slotRaw, "slot", "", `slot label, e.g. "4PM-6PM"`)
	cmd.Flags().StringVar(&mode, "mode", string(delivery.ModeDeadline), "dispatch or deadline")
	_ = cmd.MarkFlagRequired("zone")
	_ = cmd.MarkFlagRequired("slot")
	return cmd
}

func (a *app) nearestCmd() *cobra.Command {
	var lat, lng float64
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Find the closest active delivery zone to a point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := types.GeoPoint{Lat: lat, Lng: lng}
			if err := p.Validate(); err != nil {
				return err
			}
			return a.withEnv(cmd, func(ctx context.Context, env *Env, out io.Writer) error {
				m, err := env.Zones.Nearest(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s (%s) %.2f km\n", m.Zone.ID, m.Zone.AreaName, m.Zone.Pincode, m.DistanceKm)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}
