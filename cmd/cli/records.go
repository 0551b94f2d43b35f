package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
)

var (
	listLimit    int
	listAbnormal bool
	listName     string
	showJSON     bool
)

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of analyses")
	listCmd.Flags().BoolVar(&listAbnormal, "abnormal", false, "Only abnormal analyses")
	listCmd.Flags().StringVar(&listName, "name", "", "Filter by name")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the analysis as JSON")

	rootCmd.AddCommand(listCmd, showCmd, deleteCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := mustService()
		defer svc.Close()

		summaries, err := svc.ListAnalyses(omrhythm.ListOptions{
			Limit:        listLimit,
			AbnormalOnly: listAbnormal,
			Name:         listName,
		})
		if err != nil {
			return fmt.Errorf("listing analyses: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Println("\n📭 No analyses in database")
			return nil
		}

		fmt.Printf("\n📚 Found %d analysis(es):\n\n", len(summaries))
		for i, s := range summaries {
			status := "ok"
			if s.Abnormal {
				status = "abnormal"
			}
			fmt.Printf("%d. %s (ID: %s)\n", i+1, s.Name, s.ID)
			fmt.Printf("   %d stacks, %d measures, %s | %s\n", s.Stacks, s.Measures, status, s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		logger.GetLogger().Infof("Listed %d analyses", len(summaries))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the voices and times of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := mustService()
		defer svc.Close()

		a, err := svc.GetAnalysis(args[0])
		if err != nil {
			return err
		}
		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		}
		printAnalysis(os.Stdout, a)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := mustService()
		defer svc.Close()

		a, err := svc.GetAnalysis(args[0])
		if err != nil {
			return err
		}
		if err := svc.DeleteAnalysis(a.ID); err != nil {
			return fmt.Errorf("deleting analysis: %w", err)
		}
		fmt.Printf("\n✅ Deleted analysis %s (%s)\n", a.ID, a.Name)
		return nil
	},
}

func printAnalysis(w io.Writer, a *models.Analysis) {
	fmt.Fprintf(w, "\n🎼 %s (ID: %s)\n", a.Name, a.ID)
	if a.Source != "" {
		fmt.Fprintf(w, "   Source: %s\n", a.Source)
	}

	for _, st := range a.Stacks {
		fmt.Fprintf(w, "\nStack %d", st.Index)
		if st.TimeSignature != "" {
			fmt.Fprintf(w, " [%s]", st.TimeSignature)
		}
		fmt.Fprintf(w, " expected=%s actual=%s", orDash(st.Expected), orDash(st.Actual))
		if st.Excess != "" {
			fmt.Fprintf(w, " excess=%s", st.Excess)
		}
		if st.Abnormal {
			fmt.Fprint(w, " ⚠️")
		}
		fmt.Fprintln(w)
		for _, es := range st.EmptyStaves {
			fmt.Fprintf(w, "   empty staff %d of part %d\n", es.Staff, es.Part)
		}

		for _, m := range st.Measures {
			fmt.Fprintf(w, "  Part %d\n", m.Part)
			times := make(map[int]string, len(m.Chords))
			for _, c := range m.Chords {
				times[c.ID] = c.Time
			}
			for _, v := range m.Voices {
				var cells []string
				for _, id := range v.Chords {
					cells = append(cells, fmt.Sprintf("#%d@%s", id, orDash(times[id])))
				}
				fmt.Fprintf(w, "    voice %d %-5s %s", v.ID, v.Family, strings.Join(cells, " "))
				if v.TimeSignature != "" {
					fmt.Fprintf(w, "  (%s)", v.TimeSignature)
				}
				fmt.Fprintln(w)
				for _, f := range v.Forwards {
					fmt.Fprintf(w, "      forward %s at %s\n", f.Duration, f.Start)
				}
			}
			for _, v := range m.Voices {
				if v.Strip != "" {
					fmt.Fprintf(w, "    %s\n", v.Strip)
				}
			}
			for _, s := range m.Slots {
				if s.Suspicious {
					fmt.Fprintf(w, "    ⚠️ slot %d at %s is suspicious\n", s.ID, orDash(s.Time))
				}
			}
			for _, t := range m.Tuplets {
				kind := "explicit"
				if t.Implicit {
					kind = "implicit"
				}
				fmt.Fprintf(w, "    %s %s over %v\n", kind, t.Shape, t.Chords)
			}
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
