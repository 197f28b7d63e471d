package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haivivi/oggstream/pkg/ogg"
)

var extractOutDir string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Demultiplex logical streams into raw payload files",
	Long: `Extract writes the concatenated page payloads of every logical
stream in the input to <outdir>/<serial>.raw.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		if err := os.MkdirAll(extractOutDir, 0o755); err != nil {
			return err
		}

		ex := &extractor{dir: extractOutDir}
		defer ex.closeAll()

		demux := ogg.NewDemuxer(f)
		demux.AddNewStreamHandler(ex)
		if err := demux.Process(); err != nil {
			return err
		}
		return ex.err()
	},
}

// extractor opens one output file per logical stream and subscribes a
// payload writer to it.
type extractor struct {
	dir   string
	dumps []*payloadDump
}

func (e *extractor) OnNewStream(s *ogg.LogicalStream) {
	name := filepath.Join(e.dir, fmt.Sprintf("%08x.raw", s.Serial()))
	f, err := os.Create(name)
	d := &payloadDump{f: f, err: err}
	if err == nil {
		slog.Debug("new logical stream", "serial", s.Serial(), "file", name)
	} else {
		slog.Debug("cannot create output", "serial", s.Serial(), "err", err)
	}
	e.dumps = append(e.dumps, d)
	s.AddDataHandler(d)
}

func (e *extractor) err() error {
	for _, d := range e.dumps {
		if d.err != nil {
			return d.err
		}
	}
	return nil
}

func (e *extractor) closeAll() {
	for _, d := range e.dumps {
		if d.f != nil {
			d.f.Close()
		}
	}
}

// payloadDump appends every payload of one stream to its file.
// Handler callbacks cannot fail, so the first write error is kept and
// reported after processing.
type payloadDump struct {
	f   *os.File
	err error
}

func (d *payloadDump) OnData(payload []byte, meta ogg.Metadata) {
	if d.err != nil {
		return
	}
	if meta.SkippedPages > 0 {
		slog.Debug("gap in stream", "skipped_pages", meta.SkippedPages)
	}
	_, d.err = d.f.Write(payload)
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutDir, "outdir", "o", ".", "output directory")
	rootCmd.AddCommand(extractCmd)
}
