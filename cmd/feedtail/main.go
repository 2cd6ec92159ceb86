package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"orderflow/infra/feed"
)

var (
	brokers = flag.String("brokers", "localhost:9092", "comma-separated kafka brokers")
	topic   = flag.String("topic", "orderflow.market-feed", "market feed topic")
	group   = flag.String("group", "feedtail", "consumer group id")
)

// feedtail tails the Kafka market feed and prints each update.
func main() {
	flag.Parse()

	consumer := feed.NewConsumer(strings.Split(*brokers, ","), *topic, *group)
	defer consumer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("tailing %s on %s\n", *topic, *brokers)
	for {
		msg, err := consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
			return
		}
		fmt.Println(string(msg))
	}
}
