package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/haivivi/oggstream/pkg/ogg"
)

var muxManifest string

// manifest describes the logical streams to multiplex.
type manifest struct {
	Streams []manifestStream `yaml:"streams"`
}

type manifestStream struct {
	// File is the source of the stream's payload bytes.
	File string `yaml:"file"`
	// Serial fixes the stream serial number; when absent one is
	// allocated.
	Serial *uint32 `yaml:"serial,omitempty"`
	// PacketSize chunks the file into packets of this many bytes;
	// 0 writes the whole file as one packet.
	PacketSize int `yaml:"packet_size"`
	// GranuleStep is added to the granule position per packet.
	GranuleStep int64 `yaml:"granule_step"`
}

var muxCmd = &cobra.Command{
	Use:   "mux <out.ogg>",
	Short: "Multiplex files into one Ogg physical stream",
	Long: `Mux reads a YAML manifest describing one logical stream per source
file and writes all of them onto a single physical stream:

  streams:
    - file: voice.opus.raw
      serial: 0x1001
      packet_size: 4000
      granule_step: 960
    - file: chapters.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(muxManifest)
		if err != nil {
			return fmt.Errorf("failed to read manifest: %w", err)
		}
		var m manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to parse manifest: %w", err)
		}
		if len(m.Streams) == 0 {
			return fmt.Errorf("manifest lists no streams")
		}

		out, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer out.Close()

		mux := ogg.NewMuxer(out)
		for _, ms := range m.Streams {
			if err := muxStream(mux, ms); err != nil {
				return fmt.Errorf("stream %s: %w", ms.File, err)
			}
		}
		return nil
	},
}

func muxStream(mux *ogg.Muxer, ms manifestStream) error {
	data, err := os.ReadFile(ms.File)
	if err != nil {
		return err
	}

	var w *ogg.LogicalWriter
	if ms.Serial != nil {
		if w, err = mux.NewStreamSerial(*ms.Serial); err != nil {
			return err
		}
	} else {
		w = mux.NewStream()
	}
	slog.Debug("muxing stream", "file", ms.File, "serial", w.Serial(), "bytes", len(data))

	size := ms.PacketSize
	if size <= 0 {
		size = len(data)
	}

	var granule int64
	for {
		packet := data
		if len(packet) > size {
			packet = packet[:size]
		}
		data = data[len(packet):]
		granule += ms.GranuleStep

		last := len(data) == 0
		if err := w.Write(packet, granule, true, last); err != nil {
			return err
		}
		if last {
			return nil
		}
	}
}

func init() {
	muxCmd.Flags().StringVarP(&muxManifest, "manifest", "m", "", "YAML manifest file (required)")
	muxCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(muxCmd)
}
