package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"worktrack/pkg/events"
	"worktrack/pkg/logx"
)

func newEventsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Tail the domain event queue and log every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL not set")
			}
			client, err := events.Dial(rt.cfg.AMQPURL, rt.cfg.AMQPExchange, rt.cfg.AMQPQueue, rt.log)
			if err != nil {
				return err
			}
			defer client.Close()

			log := rt.log.WithComponent(logx.ComponentAMQP)
			err = client.Consume(cmd.Context(), func(ctx context.Context, ev events.Event) error {
				log.InfoContext(ctx, "Event",
					logx.FieldEvent, ev.Type,
					"event_id", ev.ID,
					logx.FieldUserID, ev.UserID,
					"occurred_at", ev.OccurredAt,
					"payload", string(ev.Payload))
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
