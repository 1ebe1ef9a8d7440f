package main

import (
	"github.com/spf13/cobra"

	"worktrack/pkg/events"
	"worktrack/pkg/logx"
	"worktrack/pkg/receipt"
	"worktrack/pkg/store"
	"worktrack/process/inbox"
)

func newInboxCmd(rt *runtime) *cobra.Command {
	var (
		dir     string
		workers int
		watch   bool
	)
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Turn receipt photos in the inbox into expenses",
		Long: `Scan RECEIPT_INBOX/<username>/ for receipt images, create an expense for
every readable total and move the files to RECEIPT_INBOX/processed/.
With --watch the command keeps running and handles new files as they arrive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer store.Close(db)

			var pub events.Publisher = events.Nop{}
			if rt.cfg.AMQPURL != "" {
				client, err := events.Dial(rt.cfg.AMQPURL, rt.cfg.AMQPExchange, rt.cfg.AMQPQueue, rt.log)
				if err != nil {
					rt.log.Warn("AMQP unavailable, events disabled", logx.FieldError, err)
				} else {
					pub = client
					defer client.Close()
				}
			}

			opts := inbox.Options{Root: rt.cfg.ReceiptInbox, Workers: rt.cfg.ReceiptWorkers, MinConfidence: rt.cfg.OCRMinConfidence}
			if dir != "" {
				opts.Root = dir
			}
			if workers > 0 {
				opts.Workers = workers
			}
			p := inbox.New(db, receipt.NewExtractor(receipt.Tesseract{}), pub, rt.log, opts)
			if err := p.Scan(cmd.Context()); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return p.Watch(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "inbox directory (default RECEIPT_INBOX)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (default RECEIPT_WORKERS)")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep watching for new files")
	return cmd
}
