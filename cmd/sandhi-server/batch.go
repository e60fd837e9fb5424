package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/config"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/diagnosis"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/printout"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Diagnose questionnaires from a YAML or JSON file without storing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			output, _ := cmd.Flags().GetString("output")
			full, _ := cmd.Flags().GetBool("report")
			if path == "" {
				return fmt.Errorf("--file is required")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			records, err := parseQuestionnaires(data, formatFor(path))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return evaluateQuestionnaires(cmd.OutOrStdout(), records, output, full, time.Now())
		},
	}
	cmd.Flags().String("file", "", "Questionnaire file (.yaml, .yml or .json); one record or a list")
	cmd.Flags().String("output", formatText, "Output format: text or json")
	cmd.Flags().Bool("report", false, "Print the full report for each questionnaire (text output)")
	return cmd
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	}
	return formatJSON
}

// parseQuestionnaires accepts either a single record or a list of records.
// JSON input uses the API wire format.
func parseQuestionnaires(data []byte, format string) ([]*patient.Record, error) {
	switch format {
	case formatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if len(node.Content) == 0 {
			return nil, errors.New("no questionnaires found")
		}
		doc := node.Content[0]
		if doc.Kind == yaml.SequenceNode {
			var records []*patient.Record
			if err := doc.Decode(&records); err != nil {
				return nil, fmt.Errorf("parse yaml: %w", err)
			}
			return records, nil
		}
		var r patient.Record
		if err := doc.Decode(&r); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return []*patient.Record{&r}, nil

	case formatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			return nil, errors.New("no questionnaires found")
		}
		if trimmed[0] == '[' {
			var records []*patient.Record
			if err := json.Unmarshal(trimmed, &records); err != nil {
				return nil, fmt.Errorf("parse json: %w", err)
			}
			return records, nil
		}
		var r patient.Record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return []*patient.Record{&r}, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// evaluateQuestionnaires writes a diagnosis for every valid record. Invalid
// records are listed on the output and reported together as an error.
func evaluateQuestionnaires(w io.Writer, records []*patient.Record, output string, full bool, now time.Time) error {
	if output != formatText && output != formatJSON {
		return fmt.Errorf("unsupported output %q", output)
	}

	reports := make([]diagnosis.Report, 0, len(records))
	var problems []string
	for i, r := range records {
		if r == nil {
			problems = append(problems, fmt.Sprintf("questionnaire %d: empty", i+1))
			continue
		}
		r.Normalize()
		if err := r.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("questionnaire %d: %v", i+1, err))
			continue
		}

		rep := diagnosis.NewReport(r)
		reports = append(reports, rep)
		if output != formatText {
			continue
		}
		if full {
			if err := printout.RenderText(w, printout.NewView(r, rep.Diagnosis, "", now)); err != nil {
				return err
			}
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", r.Demographics.Name, rep.Verdict)
		for _, reason := range rep.Diagnosis.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}

	if output == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}

	for _, p := range problems {
		fmt.Fprintln(w, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d of %d questionnaires are invalid", len(problems), len(records))
	}
	return nil
}

// openService builds a patient service over the configured store. The
// memory backend is refused since it holds nothing between runs.
func openService(ctx context.Context) (*patient.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreBackend == config.BackendMemory {
		return nil, nil, fmt.Errorf("STORE_BACKEND must be %q or %q for this command",
			config.BackendPostgres, config.BackendRedis)
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return patient.NewService(st.repo, cfg.StorageBudgetBytes), st.close, nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every stored patient as a JSON backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			ctx := context.Background()
			svc, closeStore, err := openService(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := writeExport(ctx, svc, w)
			if err != nil {
				return err
			}
			if w != cmd.OutOrStdout() {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d patient(s) to %s\n", n, out)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "-", "Output file, - for stdout")
	return cmd
}

func writeExport(ctx context.Context, svc *patient.Service, w io.Writer) (int, error) {
	envelope, err := svc.Export(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		return 0, err
	}
	return envelope.PatientCount, nil
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import patients from a JSON backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			ctx := context.Background()
			svc, closeStore, err := openService(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			return runImport(ctx, svc, data, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("file", "", "Backup file produced by export")
	return cmd
}

func runImport(ctx context.Context, svc *patient.Service, data []byte, w io.Writer) error {
	res := svc.Import(ctx, data)
	fmt.Fprintf(w, "Imported %d patient(s)\n", res.Imported)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if !res.Success && res.Imported == 0 {
		return errors.New("import failed")
	}
	return nil
}
