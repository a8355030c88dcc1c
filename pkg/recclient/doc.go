// Package recclient provides the primary entry point for constructing a
// records API client that implements the recapi.Client interface.
//
// It layers configuration, logging, and the optional NATS event sink on top
// of the call machinery and resource interfaces defined in the recapi package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/recapi/pkg/recapi"
//	  "github.com/fivetwenty-io/recapi/pkg/recclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := recclient.NewWithToken(ctx, "https://records.example.com", "eyJhbGciOi...")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  record, err := cli.Records().Get(ctx, "rec-1")
//	  if err != nil { log.Fatal(err) }
//	  _ = record
//
//	  page, err := cli.Records().Search(ctx, &recapi.SearchParams{Term: "invoice"})
//	  if err != nil { log.Fatal(err) }
//	  _ = page
//	}
//
// # Events
//
// Setting Config.EventsNATSURL publishes every settled call to NATS on
// "<EventsSubject>.<state>". A caller-supplied Config.Events takes precedence.
//
// # Cancellation
//
// Uploads register under recapi.UploadCancelKey(fileName); Client.Cancel with
// that key aborts the transfer and the call settles as cancelled.
package recclient
