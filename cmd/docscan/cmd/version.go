package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/ocr"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "docscan %s\n", a.build.Version)
			fmt.Fprintf(out, "  Build time: %s\n", a.build.BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", a.build.GitCommit)

			info := ocr.NewTesseract("").Info()
			if info.Available {
				fmt.Fprintf(out, "  OCR: %s %s\n", info.Backend, info.Version)
			} else {
				fmt.Fprintf(out, "  OCR: unavailable (%s)\n", info.Error)
			}
		},
	}
}
