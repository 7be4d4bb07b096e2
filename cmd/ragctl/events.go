package main

import (
	"context"
	"encoding/json"
	"fmt"

	pktNats "compliance-assistant-be/pkg/nats"
	"compliance-assistant-be/pkg/events"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail domain events from NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		if natsURL == "" {
			return fmt.Errorf("no NATS URL, set NATS_URL or --nats")
		}
		sub, err := pktNats.NewSubscriber(natsURL, log)
		if err != nil {
			return err
		}
		defer sub.Close()

		subject := pktNats.AllSubjects
		if eventType != "" {
			subject = pktNats.Subject(eventType)
		}
		if err := sub.Subscribe(cmd.Context(), subject, "", printDomainEvent); err != nil {
			return err
		}
		color.Cyan("listening on %s (ctrl-c to stop)", subject)
		<-cmd.Context().Done()
		return nil
	},
}

var (
	natsURL   string
	eventType string
)

func init() {
	eventsCmd.Flags().StringVar(&natsURL, "nats", cfg.App.NatsURL, "NATS server URL")
	eventsCmd.Flags().StringVarP(&eventType, "type", "t", "", "Only this event type")
}

func printDomainEvent(_ context.Context, evt events.BaseEvent) error {
	data, _ := json.Marshal(evt.Data)
	color.Yellow("%s %s", evt.OccurredAt.Format("15:04:05"), evt.Type)
	fmt.Printf("  user=%s %s\n", evt.UserID, data)
	return nil
}
