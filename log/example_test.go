package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/stmpl/log"
)

func Example() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatText),
		log.WithTimeLayout("none"))

	logger.Info("template rendered", slog.String("name", "index.tmpl"))
	// Output: level=INFO msg="template rendered" name=index.tmpl
}
