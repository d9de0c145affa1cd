package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"steprecorder/internal/codegen"
	"steprecorder/internal/i18n"
	"steprecorder/internal/models"
)

// stepFile is an exported recording: either a bare step array or an object
// carrying steps and the environment.
type stepFile struct {
	Steps      []models.Step     `json:"steps"`
	SystemInfo models.SystemInfo `json:"systemInfo"`
}

func readStepFile(r io.Reader) (stepFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return stepFile{}, err
	}
	data = bytes.TrimSpace(data)

	var out stepFile
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &out.Steps)
	} else {
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return stepFile{}, fmt.Errorf("failed to parse steps: %w", err)
	}
	return out, nil
}

func newGenerateCmd() *cobra.Command {
	var input, format, output string
	var export bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate test code from an exported step file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			file, err := readStepFile(in)
			if err != nil {
				return err
			}

			out := codegen.Generate(file.Steps, file.SystemInfo, codegen.Format(format))
			if !out.Implemented {
				fmt.Fprintf(cmd.ErrOrStderr(), "format %s is not implemented yet, writing a placeholder\n", out.Format)
			}

			if export {
				output = codegen.FileName(out.Format, time.Now())
			}
			if output == "" || output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), out.Source)
				return err
			}
			if err := os.WriteFile(output, []byte(out.Source), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "step file (JSON), - for stdin")
	cmd.Flags().StringVarP(&format, "format", "f", string(codegen.FormatManual), "output format, see the formats command")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&export, "export", false, "write to the default export file name")
	return cmd
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List output formats and recording languages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tLABEL\tEXT\tIMPLEMENTED")
			for _, f := range codegen.Formats() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", f.ID, f.Label, f.Extension, f.Implemented)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "LANGUAGE\tNAME")
			for _, l := range i18n.Languages() {
				fmt.Fprintf(w, "%s\t%s\n", l.Code, l.Name)
			}
			return w.Flush()
		},
	}
}
