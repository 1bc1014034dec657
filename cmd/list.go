package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/lmorchard/tempmongo-go/internal/procutil"
	"github.com/lmorchard/tempmongo-go/internal/registry"
	"github.com/spf13/cobra"
)

var (
	listAll    bool
	listFormat string
)

// instanceSummary is one row of list output.
type instanceSummary struct {
	Directory     string     `json:"directory"`
	PID           int        `json:"pid"`
	Endpoint      string     `json:"endpoint"`
	MongodPath    string     `json:"mongodPath"`
	State         string     `json:"state"`
	StartedAt     time.Time  `json:"startedAt"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
	Kept          bool       `json:"kept"`
	Running       bool       `json:"running"`
	DirExists     bool       `json:"dirExists"`
	TeardownError string     `json:"teardownError,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded instances",
	Long: `Lists instances recorded in the registry.

By default only running instances and kept directories are shown; use --all
to include instances that were cleaned up.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include instances that were cleaned up")
	listCmd.Flags().StringVar(&listFormat, "format", formatTable, "Output format (table|json)")
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	cfg := GetConfig()

	db, err := registry.New(cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	records, err := db.ListInstances(listAll)
	if err != nil {
		return err
	}

	summaries := make([]*instanceSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}

	switch determineListFormat(cfg) {
	case formatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summaries)
	case formatTable:
		return outputInstanceTable(summaries)
	default:
		return fmt.Errorf("unknown format: %s", listFormat)
	}
}

func determineListFormat(cfg *config.Config) string {
	if listFormat == formatTable && cfg.JSON {
		return formatJSON
	}
	return listFormat
}

func summarize(rec *registry.Instance) *instanceSummary {
	s := &instanceSummary{
		Directory:  rec.Directory,
		PID:        rec.PID,
		Endpoint:   rec.Endpoint,
		MongodPath: rec.MongodPath,
		State:      rec.State,
		StartedAt:  rec.StartedAt,
		Kept:       rec.Disowned,
		Running:    isRunning(rec),
		DirExists:  dirExists(rec.Directory),
	}
	if rec.ClosedAt.Valid {
		closed := rec.ClosedAt.Time
		s.ClosedAt = &closed
	}
	if rec.TeardownError.Valid {
		s.TeardownError = rec.TeardownError.String
	}
	return s
}

// isRunning trusts a closed record over the pid, which may have been reused.
func isRunning(rec *registry.Instance) bool {
	return !rec.Closed() && procutil.Alive(rec.PID)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func outputInstanceTable(summaries []*instanceSummary) error {
	if len(summaries) == 0 {
		fmt.Println("No instances recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATE\tPID\tRUNNING\tKEPT\tDIRECTORY")
	fmt.Fprintln(w, "-------\t-----\t---\t-------\t----\t---------")

	for _, s := range summaries {
		dir := s.Directory
		if len(dir) > maxColumnWidth {
			dir = "..." + dir[len(dir)-maxColumnWidth+3:]
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04"), s.State, s.PID,
			yesNo(s.Running), yesNo(s.Kept), dir)
	}

	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
