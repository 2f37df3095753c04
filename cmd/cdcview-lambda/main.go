// cdcview-lambda answers CloudFormation macro events with the fragments
// generated for a change data capture table.
//
// Set CDCVIEW_DEBUG=true to log the generated queries. CDCVIEW_STORE_DIR
// (for example a directory under /tmp) keeps generated fragments between
// warm invocations.
package main

import (
	"context"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pagopa/cdcview/artifactstore"
	"github.com/pagopa/cdcview/internal/logger"
	"github.com/pagopa/cdcview/transform"
)

func main() {
	debug, _ := strconv.ParseBool(os.Getenv("CDCVIEW_DEBUG"))
	log := logger.New(os.Stderr, debug)
	logger.SetGlobal(log, debug)

	opts := []transform.Option{transform.WithLogger(log)}
	if dir := os.Getenv("CDCVIEW_STORE_DIR"); dir != "" {
		store, err := artifactstore.New(artifactstore.StoreOptions{Path: dir})
		if err != nil {
			log.Error("Artifact store unavailable, running without cache", "dir", dir, "error", err)
		} else {
			opts = append(opts, transform.WithCache(store))
		}
	}

	lambda.Start(newHandler(transform.NewHandler(opts...)))
}

// newHandler adapts h to the Lambda signature. A failed event is reported
// to CloudFormation through the returned error.
func newHandler(h *transform.Handler) func(context.Context, transform.Event) (transform.Response, error) {
	return func(ctx context.Context, ev transform.Event) (transform.Response, error) {
		resp, err := h.Handle(ctx, ev)
		if err != nil {
			logger.Get().Error("Transform failed", "request_id", ev.RequestID, "view", ev.Params.CdcViewName, "error", err)
			return transform.Response{}, err
		}
		return resp, nil
	}
}
