package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/teranos/popidx/am"
	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/logger"
)

// BindRootFlags adds the persistent flags every popidx command reads.
func BindRootFlags(root *cobra.Command) {
	root.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	root.PersistentFlags().String("config", "", "Read configuration from this file instead of the system, user and project files")
}

// Setup loads configuration and initializes the logger before cmd runs.
func Setup(cmd *cobra.Command) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := am.UseConfigFile(path); err != nil {
			return err
		}
	}

	jsonLog := false
	if cmd.Name() != "show" {
		if cfg, err := am.Load(); err == nil {
			jsonLog = cfg.Log.JSON
		}
	}
	if err := logger.Initialize(jsonLog, verbosity); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	logger.Debugw("Logger initialized",
		"verbosity", logger.LevelName(verbosity),
		"output", logger.EnabledCategories(verbosity))
	return nil
}

// ReportError writes err for the user, followed by its engine error class
// and hints. When logs are JSON the failure is logged as one structured entry
// instead.
func ReportError(w io.Writer, err error) {
	hints := errors.GetAllHints(err)

	if logger.JSONOutput {
		fields := []interface{}{"error", err.Error()}
		if errors.IsClassified(err) {
			fields = append(fields, "class", errors.Classify(err).Error())
		}
		if len(hints) > 0 {
			fields = append(fields, "hints", hints)
		}
		logger.Errorw("Command failed", fields...)
		return
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	if class := errors.Classify(err); class != nil {
		fmt.Fprintf(w, "  class: %s\n", class)
	}
	for _, h := range hints {
		fmt.Fprintf(w, "  hint: %s\n", h)
	}
}
