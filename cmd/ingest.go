package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ioc-radar/backend/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Consume alerts from Kafka and store them",
	Long: `Reads JSON alerts from KAFKA_TOPIC in consumer group KAFKA_CONSUMER_GROUP,
stores them through the same path as POST /api/v1/alerts and notifies
relevant clients. Messages that keep failing are moved to KAFKA_DLQ_TOPIC.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "ingest")
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.ensureSchema(ctx); err != nil {
			return err
		}
		svc, err := a.buildServices(ctx)
		if err != nil {
			return err
		}

		a.log.Info("starting kafka ingest",
			"brokers", a.cfg.Kafka.Brokers,
			"group", a.cfg.Kafka.ConsumerGroup,
			"dlq_topic", a.cfg.Kafka.DLQTopic,
		)
		return ingest.NewWorker(a.cfg.Kafka, svc.alerts, a.log).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
