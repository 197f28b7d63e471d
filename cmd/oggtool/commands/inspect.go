package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/haivivi/oggstream/pkg/ogg"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the pages of an Ogg file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		fmt.Println(titleStyle.Render(args[0]))
		fmt.Println(headerStyle.Render(fmt.Sprintf(
			"%-10s %-10s %-12s %-5s %-4s %s", "serial", "seq", "granule", "flags", "segs", "payload")))

		pages := 0
		streams := map[uint32]int{}
		r := ogg.NewPageReader(f)
		for {
			p, err := r.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return err
			}
			pages++
			streams[p.Serial]++
			fmt.Printf("%#08x %-10d %-12d %-5s %-4d %d\n",
				p.Serial, p.Sequence, p.GranulePosition, flagString(p), len(p.SegmentTable), len(p.Payload))
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%d pages, %d logical streams", pages, len(streams))))
		return nil
	},
}

// flagString renders a page's header type flags as "cbe" letters.
func flagString(p *ogg.Page) string {
	out := []byte("---")
	if p.Continued {
		out[0] = 'c'
	}
	if p.BOS {
		out[1] = 'b'
	}
	if p.EOS {
		out[2] = 'e'
	}
	return string(out)
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
