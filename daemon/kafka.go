// Kafka ingest: each store can receive runs from a broker topic `<store>.ns-run`.  The record
// value is a JSON envelope carrying the run name and the base64-encoded CBOR run data.

package daemon

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"

	"github.com/twmb/franz-go/pkg/kgo"

	"nsanalyze/db"
)

const runTopicSuffix = ".ns-run"

type runEnvelope struct {
	Name string `json:"name,omitempty"`
	Run  string `json:"run"`
}

// This runs on a goroutine - one goroutine per store, just to be a little resilient.

func runKafka(kafkaBroker, store string, ds *db.PersistentStore, verbose bool) {
	topic := store + runTopicSuffix
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(kafkaBroker),
		kgo.ConsumerGroup("nsanalyze-ingest"),
		kgo.ConsumeTopics(topic),
	)
	if err != nil {
		// This should be surfaced somehow, but probably we should just back off and retry later,
		// the broker could be down - depends on the error!
		log.Printf("%s: Failed to create client: %v", store, err)
		return
	}
	defer cl.Close()
	if verbose {
		log.Printf("%s: Connected!", store)
	}

	ctx := context.Background()
	for {
		if verbose {
			log.Printf("%s: Fetching data", store)
		}
		fetches := cl.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			// All errors are retried internally when fetching, but non-retriable errors are
			// returned from polls so that users can notice and take action.
			log.Printf("%s: SOFT ERROR: Failed to fetch data! %v", store, errs)
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			if verbose {
				log.Printf("  %s: %s", store, record.Topic)
			}
			err := ingestRun(ds, record.Value)
			if err != nil {
				log.Printf("  %s: SOFT ERROR: Run ingest failed: %v", store, err)
			}
		}
		if err := cl.CommitUncommittedOffsets(ctx); err != nil {
			log.Printf("  %s: SOFT ERROR: Commit records failed: %v", store, err)
		}
	}
}

func ingestRun(ds *db.PersistentStore, value []byte) error {
	var env runEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("bad envelope: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(env.Run)
	if err != nil {
		return fmt.Errorf("bad run encoding: %w", err)
	}
	r, err := db.ReadRun(bytes.NewReader(data))
	if err != nil {
		return err
	}
	name := env.Name
	if name == "" {
		name = db.SaveName(r.Settings)
	}
	return ds.Add(name, r)
}
